package main

import (
	"chainsign/internal/app"
	"chainsign/internal/blobstore"
	"chainsign/internal/blockchain"
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/blockchain/events"
	"chainsign/internal/config"
	"chainsign/internal/keymanager"
	"chainsign/internal/ports/http"
	"chainsign/internal/ports/http/middleware/auth"
	"chainsign/internal/repository/mongodb"
	"chainsign/internal/signkeys"
	"context"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const usage = `Document approval service. Files go to the blob store, their fingerprints and
approval chains to the ledger.`

func main() {
	var configFile string

	cliApp := &cli.App{
		Name:  "chainsign",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`, environment variables take precedence",
				Destination: &configFile,
			},
		},
		Before: func(_ *cli.Context) error {
			if configFile == "" {
				return nil
			}
			return config.ReadFile(configFile)
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Runs the REST API.",
				Action: func(_ *cli.Context) error {
					return serve()
				},
			},
			{
				Name:    "keygen",
				Aliases: []string{"k"},
				Usage:   "Generates a secp256k1 key pair, usable as BATCHER_KEY or as a wallet key.",
				Action: func(_ *cli.Context) error {
					return keygen()
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func serve() error {
	logger, err := getLogger()
	if err != nil {
		log.Fatalln("setting up the logger failed: ", err)
		return err
	}
	defer logger.Sync()

	logger.Info("application started")

	contract := config.GetContract()

	batcherKeys, err := loadBatcherKeys(logger)
	if err != nil {
		return err
	}

	repo, err := mongodb.NewConnection(logger, config.GetDbConnectionURI(), config.GetDatabaseName(), config.GetRequestTimeout())
	if err != nil {
		return err
	}
	defer repo.Disconnect()

	ledger := blockchain.NewClient(logger, contract, batcherKeys)
	blob := blobstore.NewClient(logger, contract.BlobStoreEndpoint, &nethttp.Client{Timeout: config.GetRequestTimeout()})
	keys := keymanager.NewKeyManager(logger, config.GetSessionTTL())

	application := app.NewApp(logger, contract, ledger, repo, blob, keys)

	var listener *events.Listener
	if config.EventsEnabled() {
		listener = events.NewListener(logger, config.GetValidatorAddr())
		handler := application.HandleLedgerEvent(config.GetRequestTimeout())
		listener.SetHandler(chainsignfamily.EventDocumentCreated, handler)
		listener.SetHandler(chainsignfamily.EventDocumentApproved, handler)

		if err := listener.Start(); err != nil {
			// the cache refreshes on the next read anyway
			logger.Error("failed to start the event listener: " + err.Error())
			listener = nil
		}
	}

	options := []http.Option{
		http.WithRequestTimeout(config.GetRequestTimeout()),
		http.WithAllowedOrigins(config.GetAllowedOrigins()),
	}
	if issuer := config.GetJwtIssuer(); issuer != "" {
		options = append(options, http.WithAuth(auth.NewTokenValidator(logger, auth.JwtTokenParams{
			Issuer:   issuer,
			Audience: config.GetJwtAudience(),
			Secret:   config.GetJwtSecret(),
		})))
	}
	ser := http.NewServer(logger, application, config.GetPort(), options...)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ser.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-serverErr:
		if err != nil {
			logger.Error("failed to run the server: " + err.Error())
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := ser.Shutdown(ctx)
	if listener != nil {
		shutdownErr = multierr.Append(shutdownErr, listener.Stop())
	}
	if shutdownErr != nil {
		logger.Error("shutdown: " + shutdownErr.Error())
	}

	logger.Info("application finished")

	return multierr.Append(err, shutdownErr)
}

func loadBatcherKeys(logger *zap.Logger) (signkeys.UserKeys, error) {
	if key := config.GetBatcherKey(); key != "" {
		return signkeys.NewUserKeys(key)
	}

	logger.Warn("BATCHER_KEY not set, signing batches with a generated key")
	return signkeys.GenerateKeys()
}

func keygen() error {
	keys, err := signkeys.GenerateKeys()
	if err != nil {
		return err
	}

	pterm.Info.Println("private key: " + keys.PrivateKey.AsHex())
	pterm.Info.Println("public key:  " + keys.PublicKey.AsHex())
	pterm.Info.Println("address:     " + keys.Address())
	return nil
}

func getLogger() (*zap.Logger, error) {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.FatalLevel),
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	config.Development = true
	config.Level.SetLevel(zap.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.WithOptions(options...), nil
}
