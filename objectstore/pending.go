package objectstore

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// the net effect of all local edits to one object since the last
// successful save. at most one operation is queued per field; a new
// edit to a field with a pending operation always replaces it with
// the merged result.
type PendingOperationSet struct {
	mutex      sync.Mutex
	operations map[string]*FieldOperation
}

func NewPendingOperationSet() *PendingOperationSet {
	return &PendingOperationSet{
		operations: map[string]*FieldOperation{},
	}
}

func (self *PendingOperationSet) Apply(fieldName string, operation *FieldOperation) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	merged, err := operation.Merge(self.operations[fieldName])
	if err != nil {
		return err
	}
	self.operations[fieldName] = merged
	return nil
}

func (self *PendingOperationSet) Set(fieldName string, value any) error {
	return self.Apply(fieldName, NewSetOperation(value))
}

func (self *PendingOperationSet) Delete(fieldName string) error {
	return self.Apply(fieldName, NewDeleteOperation())
}

// the single operation currently queued for the field, or nil
func (self *PendingOperationSet) Operation(fieldName string) *FieldOperation {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	return self.operations[fieldName]
}

func (self *PendingOperationSet) FieldNames() []string {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	fieldNames := maps.Keys(self.operations)
	slices.Sort(fieldNames)
	return fieldNames
}

func (self *PendingOperationSet) Len() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	return len(self.operations)
}

// the request body for a save round-trip
func (self *PendingOperationSet) Payload() map[string]any {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	payload := map[string]any{}
	for fieldName, operation := range self.operations {
		payload[fieldName] = operation.WireValue()
	}
	return payload
}

// called after a successful save
func (self *PendingOperationSet) Clear() {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	maps.Clear(self.operations)
}
