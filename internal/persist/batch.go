package persist

import (
	"fmt"

	"tabula/internal/ormerr"
)

// NoElement — Index ошибки, не связанной с конкретным элементом
// (транзакция не открылась или не зафиксировалась).
const NoElement = -1

// BatchError — отказ пакетной вставки. Index — позиция упавшего элемента или NoElement.
type BatchError struct {
	OpID   string
	Index  int
	Entity string
	Err    error
}

func (e *BatchError) Error() string {
	if e.Index == NoElement {
		return fmt.Sprintf("batch %s failed: %v", e.OpID, e.Err)
	}
	if e.Entity != "" {
		return fmt.Sprintf("batch %s failed at element %d (%s): %v", e.OpID, e.Index, e.Entity, e.Err)
	}
	return fmt.Sprintf("batch %s failed at element %d: %v", e.OpID, e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Is: любой *BatchError соответствует ormerr.ErrBatchFailed.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*ormerr.Error)
	return ok && t.Code == ormerr.CodeBatchFailed
}
