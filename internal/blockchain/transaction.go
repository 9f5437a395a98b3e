/**
 * Copyright 2018 Intel Corporation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 * ------------------------------------------------------------------------------
 */

// based on https://github.com/hyperledger/sawtooth-sdk-go/blob/21f3d02d2446b6a91a945c93a8b94b1ddf616841/examples/intkey_go/src/sawtooth_intkey_client/intkey_client.go

package blockchain

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/hashing"
	"chainsign/internal/model"
	"chainsign/internal/wallet"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor"
	"github.com/google/uuid"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/batch_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/protobuf/transaction_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"google.golang.org/protobuf/proto"
)

// callPayload is the transaction payload understood by the transaction processor.
type callPayload struct {
	Package  string        `cbor:"package"`
	Module   string        `cbor:"module"`
	Function string        `cbor:"function"`
	Args     []interface{} `cbor:"args"`
}

func encodePayload(packageID string, call model.Call) ([]byte, error) {
	args := call.Args
	if args == nil {
		args = []interface{}{}
	}

	payload := callPayload{
		Package:  packageID,
		Module:   chainsignfamily.ModuleName,
		Function: call.EntryPoint,
		Args:     args,
	}

	payloadDump, err := cbor.Marshal(payload, cbor.CanonicalEncOptions())
	if err != nil {
		return nil, errors.New("failed to dump the payload: " + err.Error())
	}
	return payloadDump, nil
}

// NewTransaction builds the transaction and has the wallet session sign its header.
func NewTransaction(ctx context.Context, payloadDump []byte, session wallet.Session, batcherPublicKey string, addresses []string) (*transaction_pb2.Transaction, error) {

	// Construct TransactionHeader
	rawTransactionHeader := transaction_pb2.TransactionHeader{
		SignerPublicKey:  session.PublicKey(),
		FamilyName:       chainsignfamily.FamilyName,
		FamilyVersion:    chainsignfamily.FamilyVersion,
		Nonce:            uuid.NewString(),
		BatcherPublicKey: batcherPublicKey,
		Inputs:           addresses,
		Outputs:          addresses,
		PayloadSha512:    hashing.Calculate(payloadDump),
	}

	transactionHeader, err := proto.Marshal(&rawTransactionHeader)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize transaction header: %v", err)
	}

	// Signature of TransactionHeader, this is where the wallet holder is prompted
	signature, err := session.RequestSignature(ctx, transactionHeader)
	if err != nil {
		return nil, err
	}

	// Construct Transaction
	return &transaction_pb2.Transaction{
		Header:          transactionHeader,
		HeaderSignature: hex.EncodeToString(signature),
		Payload:         payloadDump,
	}, nil
}

func createBatchList(
	transactions []*transaction_pb2.Transaction, signer *signing.Signer) (*batch_pb2.BatchList, error) {

	// Get list of TransactionHeader signatures
	transactionSignatures := []string{}
	for _, transaction := range transactions {
		transactionSignatures =
			append(transactionSignatures, transaction.HeaderSignature)
	}

	// Construct BatchHeader
	rawBatchHeader := batch_pb2.BatchHeader{
		SignerPublicKey: signer.GetPublicKey().AsHex(),
		TransactionIds:  transactionSignatures,
	}
	batchHeader, err := proto.Marshal(&rawBatchHeader)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize batch header: %v", err)
	}

	// Signature of BatchHeader
	batchHeaderSignature := hex.EncodeToString(
		signer.Sign(batchHeader))

	// Construct Batch
	batch := batch_pb2.Batch{
		Header:          batchHeader,
		Transactions:    transactions,
		HeaderSignature: batchHeaderSignature,
	}

	// Construct BatchList
	return &batch_pb2.BatchList{
		Batches: []*batch_pb2.Batch{&batch},
	}, nil
}
