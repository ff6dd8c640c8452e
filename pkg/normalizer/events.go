package normalizer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const eventsABI = `[
  {"type":"event","name":"CheckpointSaved","anonymous":false,"inputs":[
    {"name":"blockNumber","type":"uint48","indexed":true},
    {"name":"blockHash","type":"bytes32","indexed":false},
    {"name":"stateRoot","type":"bytes32","indexed":false}]},
  {"type":"event","name":"DataFinalizedV3","anonymous":false,"inputs":[
    {"name":"startBlockNumber","type":"uint256","indexed":true},
    {"name":"endBlockNumber","type":"uint256","indexed":true},
    {"name":"shnarf","type":"bytes32","indexed":true},
    {"name":"parentStateRootHash","type":"bytes32","indexed":false},
    {"name":"finalStateRootHash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"BlocksVerificationDone","anonymous":false,"inputs":[
    {"name":"lastBlockFinalized","type":"uint256","indexed":true},
    {"name":"startingRootHash","type":"bytes32","indexed":false},
    {"name":"finalRootHash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"DataFinalized","anonymous":false,"inputs":[
    {"name":"parentStateRootHash","type":"bytes32","indexed":true},
    {"name":"finalStateRootHash","type":"bytes32","indexed":true},
    {"name":"finalBlockNumber","type":"uint256","indexed":true}]},
  {"type":"event","name":"SendRootUpdated","anonymous":false,"inputs":[
    {"name":"outputRoot","type":"bytes32","indexed":true},
    {"name":"l2BlockHash","type":"bytes32","indexed":true}]}
]`

var parsed = mustParse(eventsABI)

// Event looks up one of the known checkpoint events by name.
func Event(name string) abi.Event {
	ev, ok := parsed.Events[name]
	if !ok {
		panic(fmt.Sprintf("unknown event %s", name))
	}
	return ev
}

func mustParse(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}
