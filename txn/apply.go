package txn

import (
	"fmt"

	"github.com/stratadb/strata/space"
)

// Apply writes a committed transaction's ops into their spaces. Every op that
// can fail is validated before the first write lands, so the batch applies in
// full or not at all. The caller must hold whatever branch-level lock makes
// the batch atomic with respect to other writers.
func Apply(ops []Op, getSpace func(name string) *space.Space) error {
	for i := range ops {
		op := &ops[i]
		switch op.Kind {
		case OpVectorUpsert:
			sp := getSpace(op.Space)
			if err := sp.Vector.ValidateVector(op.Collection, op.Embedding); err != nil {
				return fmt.Errorf("txn: vector %s/%s: %w", op.Collection, op.Key, err)
			}
		case OpVectorDelete:
			sp := getSpace(op.Space)
			if _, err := sp.Vector.Dimension(op.Collection); err != nil {
				return fmt.Errorf("txn: vector %s/%s: %w", op.Collection, op.Key, err)
			}
		case OpKVPut, OpKVDelete, OpStatePut, OpStateDelete, OpJSONPut, OpJSONDelete, OpEventAppend:
			// Infallible once the space exists.
		default:
			return fmt.Errorf("txn: unknown op kind %q", op.Kind)
		}
	}

	for i := range ops {
		op := &ops[i]
		sp := getSpace(op.Space)
		switch op.Kind {
		case OpKVPut:
			sp.KV.Put(op.Key, op.Value)
		case OpKVDelete:
			sp.KV.Delete(op.Key)
		case OpStatePut:
			sp.State.Put(op.Key, op.Value)
		case OpStateDelete:
			sp.State.Delete(op.Key)
		case OpJSONPut:
			sp.JSON.Put(op.Key, op.Value)
		case OpJSONDelete:
			sp.JSON.Delete(op.Key)
		case OpEventAppend:
			sp.Events.Append(op.EventType, op.Value)
		case OpVectorUpsert:
			if _, err := sp.Vector.Upsert(op.Collection, op.Key, op.Embedding, op.Metadata); err != nil {
				// Unreachable after pre-validation; surface it regardless.
				return fmt.Errorf("txn: vector %s/%s: %w", op.Collection, op.Key, err)
			}
		case OpVectorDelete:
			if _, err := sp.Vector.Delete(op.Collection, op.Key); err != nil {
				return fmt.Errorf("txn: vector %s/%s: %w", op.Collection, op.Key, err)
			}
		}
	}
	return nil
}
