// based on https://www.hyperledger.org/blog/2019/02/19/hyperledger-sawtooth-events-in-go-2
package events

import (
	"chainsign/internal/model"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperledger/sawtooth-sdk-go/messaging"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/client_event_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/events_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/validator_pb2"
	"github.com/pebbe/zmq4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// Handler is called for every received event of the type it was registered for.
type Handler func(event model.Event) error

// Listener subscribes to contract events on the validator and dispatches them
// to the registered handlers. Handlers only refresh caches, the workflow never
// depends on them.
type Listener struct {
	logger       *zap.Logger
	connection   messaging.Connection
	validatorURL string
	handlers     map[string]Handler
	unsubscribe  func() error
	stop         chan struct{}
	wg           sync.WaitGroup
}

// NewListener connects to the validator component endpoint, host:port.
func NewListener(logger *zap.Logger, validatorAddr string) *Listener {
	return &Listener{
		logger:       logger,
		validatorURL: fmt.Sprint("tcp://", validatorAddr),
		handlers:     make(map[string]Handler),
	}
}

// SetHandler must be called before Start.
func (l *Listener) SetHandler(eventType string, handler Handler) {
	l.handlers[eventType] = handler
}

func (l *Listener) Start() error {
	if len(l.handlers) == 0 {
		return errors.New("no event handlers registered")
	}

	zmqContext, err := zmq4.NewContext()
	if err != nil {
		return err
	}

	connection, err := messaging.NewConnection(zmqContext, zmq4.DEALER, l.validatorURL, false)
	if err != nil {
		return err
	}
	l.connection = connection

	eventTypes := make([]string, 0, len(l.handlers))
	for eventType := range l.handlers {
		eventTypes = append(eventTypes, eventType)
	}
	if err := l.subscribe(eventTypes); err != nil {
		l.connection.Close()
		return errors.New("event subscription failed: " + err.Error())
	}

	l.stop = make(chan struct{})
	go func() {
		if err := l.listenLoop(); err != nil {
			l.logger.Error("event listener stopped", zap.Error(err))
		}
	}()

	return nil
}

// Stop unsubscribes, closes the connection and waits for running handlers.
func (l *Listener) Stop() error {
	if l.stop == nil {
		return nil
	}
	close(l.stop)

	var allErr error
	if l.unsubscribe != nil {
		allErr = multierr.Append(allErr, l.unsubscribe())
	}
	l.connection.Close()

	l.logger.Info("waiting for the event handlers to finish")
	l.wg.Wait()
	l.logger.Info("event handlers finished")

	return allErr
}

func (l *Listener) listenLoop() error {
	l.logger.Info("listening on ledger events", zap.String("validator", l.validatorURL))

	for {
		select {
		case <-l.stop:
			return nil
		default:
		}

		_, message, err := l.connection.RecvMsg()
		if err != nil {
			select {
			case <-l.stop:
				return nil
			default:
				return err
			}
		}
		if message.MessageType != validator_pb2.Message_CLIENT_EVENTS {
			l.logger.Warn("unexpected message from the validator", zap.String("type", message.MessageType.String()))
			continue
		}

		eventList := events_pb2.EventList{}
		if err := proto.Unmarshal(message.Content, &eventList); err != nil {
			l.logger.Error("malformed event list", zap.Error(err))
			continue
		}

		for _, event := range eventList.Events {
			l.Dispatch(ToModel(event))
		}
	}
}

// Dispatch runs the handler of the event type in its own goroutine.
func (l *Listener) Dispatch(event model.Event) {
	handler, ok := l.handlers[event.Type]
	if !ok {
		l.logger.Debug("no handler for the event", zap.String("eventType", event.Type))
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := handler(event); err != nil {
			l.logger.Error("event handler failed", zap.String("eventType", event.Type), zap.Error(err))
		}
	}()
}

// Wait blocks until the dispatched handlers have returned.
func (l *Listener) Wait() {
	l.wg.Wait()
}

// ToModel converts a validator event.
func ToModel(event *events_pb2.Event) model.Event {
	converted := model.Event{
		Type:       event.GetEventType(),
		Attributes: make(map[string]string, len(event.GetAttributes())),
		Data:       event.GetData(),
	}
	for _, attr := range event.GetAttributes() {
		converted.Attributes[attr.GetKey()] = attr.GetValue()
	}
	return converted
}

func (l *Listener) subscribe(eventTypes []string) error {
	subscriptions := make([]*events_pb2.EventSubscription, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscriptions = append(subscriptions, &events_pb2.EventSubscription{EventType: eventType})
	}

	request, err := proto.Marshal(&client_event_pb2.ClientEventsSubscribeRequest{Subscriptions: subscriptions})
	if err != nil {
		return err
	}

	corrID, err := l.connection.SendNewMsg(validator_pb2.Message_CLIENT_EVENTS_SUBSCRIBE_REQUEST, request)
	if err != nil {
		return err
	}
	_, response, err := l.connection.RecvMsgWithId(corrID)
	if err != nil {
		return err
	}

	subscribeResponse := client_event_pb2.ClientEventsSubscribeResponse{}
	if err := proto.Unmarshal(response.Content, &subscribeResponse); err != nil {
		return err
	}
	if subscribeResponse.Status != client_event_pb2.ClientEventsSubscribeResponse_OK {
		return errors.New("subscription status: " + subscribeResponse.Status.String())
	}

	l.unsubscribe = l.unsubscribeAll
	l.logger.Info("subscribed to ledger events", zap.Strings("eventTypes", eventTypes))

	return nil
}

func (l *Listener) unsubscribeAll() error {
	request, err := proto.Marshal(&client_event_pb2.ClientEventsUnsubscribeRequest{})
	if err != nil {
		return err
	}

	corrID, err := l.connection.SendNewMsg(validator_pb2.Message_CLIENT_EVENTS_UNSUBSCRIBE_REQUEST, request)
	if err != nil {
		return err
	}
	_, response, err := l.connection.RecvMsgWithId(corrID)
	if err != nil {
		return err
	}

	unsubscribeResponse := client_event_pb2.ClientEventsUnsubscribeResponse{}
	if err := proto.Unmarshal(response.Content, &unsubscribeResponse); err != nil {
		return err
	}
	if unsubscribeResponse.Status != client_event_pb2.ClientEventsUnsubscribeResponse_OK {
		return errors.New("unsubscribe status: " + unsubscribeResponse.Status.String())
	}

	return nil
}
