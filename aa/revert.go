package aa

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	revertArgs     = mustStringArgs()
)

// RevertError carries the raw payload of a failed call. The payload is never
// rewritten so callers can decode custom errors themselves.
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string {
	if len(e.Data) == 0 {
		return "execution reverted"
	}
	if reason, err := abi.UnpackRevert(e.Data); err == nil {
		return "execution reverted: " + reason
	}
	return "execution reverted: " + hexutil.Encode(e.Data)
}

// ErrorData returns the payload hex encoded, matching the JSON-RPC error data
// field.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(e.Data)
}

// EncodeRevertReason returns the Error(string) payload for reason.
func EncodeRevertReason(reason string) []byte {
	packed, err := revertArgs.Pack(reason)
	if err != nil {
		return append([]byte{}, revertSelector...)
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

func mustStringArgs() abi.Arguments {
	typ, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: typ}}
}
