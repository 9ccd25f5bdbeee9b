package record

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/spookydb/spookydb/errs"
)

// cborDecMode decodes CBOR maps into map[string]any so nested payloads
// round-trip through the same shapes the JSON family uses.
var cborDecMode cbor.DecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("record: invalid cbor decode options: %v", err))
	}

	return dm
}()

// marshalCBOR encodes a plain Go value as CBOR and appends it to dst.
func marshalCBOR(dst []byte, x any) ([]byte, error) {
	enc, err := cbor.Marshal(x)
	if err != nil {
		return dst, fmt.Errorf("%w: %v", errs.ErrCbor, err)
	}

	return append(dst, enc...), nil
}

// unmarshalCBOR decodes CBOR bytes into a plain Go value.
func unmarshalCBOR(data []byte) (any, bool) {
	var out any
	if err := cborDecMode.Unmarshal(data, &out); err != nil {
		return nil, false
	}

	return out, true
}
