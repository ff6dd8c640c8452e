package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/proof"
)

const maxBodyBytes = 1 << 16

var (
	ErrMissingBlockNumber = errors.New("missing blockNumber")
	ErrMissingDirection   = errors.New("missing direction")
	ErrMissingSlot        = errors.New("missing storageSlot")
)

// blockNumber accepts a JSON number or a decimal/hex string.
type blockNumber uint64

func (b *blockNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return fmt.Errorf("invalid block number %s", data)
	}
	*b = blockNumber(n)
	return nil
}

type checkProofRequest struct {
	Chain       string       `json:"chain"`
	BlockNumber *blockNumber `json:"blockNumber"`
	Direction   string       `json:"direction"`
}

func (r checkProofRequest) validate() error {
	if r.BlockNumber == nil {
		return ErrMissingBlockNumber
	}
	if r.Direction == "" {
		return ErrMissingDirection
	}
	return nil
}

type generateProofRequest struct {
	checkProofRequest
	StorageSlot string `json:"storageSlot"`
	Account     string `json:"account"`
}

func (r generateProofRequest) toRequest() (proof.GenerateRequest, error) {
	if err := r.validate(); err != nil {
		return proof.GenerateRequest{}, err
	}
	if r.Chain == "" {
		return proof.GenerateRequest{}, errors.New("missing chain")
	}
	if r.StorageSlot == "" {
		return proof.GenerateRequest{}, ErrMissingSlot
	}
	dir, err := types.ParseDirection(r.Direction)
	if err != nil {
		return proof.GenerateRequest{}, err
	}
	h, err := proof.ParseSlot(r.StorageSlot)
	if err != nil {
		return proof.GenerateRequest{}, err
	}

	out := proof.GenerateRequest{
		Chain:       r.Chain,
		Direction:   dir,
		BlockNumber: uint64(*r.BlockNumber),
		Slot:        &h,
	}
	if r.Account != "" {
		if !common.IsHexAddress(r.Account) {
			return proof.GenerateRequest{}, fmt.Errorf("invalid account %q", r.Account)
		}
		a := common.HexToAddress(r.Account)
		out.Account = &a
	}
	return out, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
