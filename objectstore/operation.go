package objectstore

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/slices"
)

type OperationKind int

const (
	OperationSet OperationKind = iota
	OperationDelete
	OperationIncrement
	OperationAdd
	OperationAddUnique
	OperationRemove
	OperationRelation
)

func (self OperationKind) String() string {
	switch self {
	case OperationSet:
		return "Set"
	case OperationDelete:
		return "Delete"
	case OperationIncrement:
		return "Increment"
	case OperationAdd:
		return "Add"
	case OperationAddUnique:
		return "AddUnique"
	case OperationRemove:
		return "Remove"
	case OperationRelation:
		return "Relation"
	}
	return fmt.Sprintf("OperationKind(%d)", int(self))
}

// a reference to a remote object
// comparable
type ObjectRef struct {
	ClassName string `json:"className"`
	ObjectId  string `json:"objectId"`
}

func (self ObjectRef) Reference() ObjectRef {
	return self
}

func (self ObjectRef) pointerValue() map[string]any {
	return map[string]any{
		"__type":    "Pointer",
		"className": self.ClassName,
		"objectId":  self.ObjectId,
	}
}

// implemented by list items that stand for a remote object.
// such items are matched by identity (class + object id), not value,
// and an identity match replaces the list member in place so the
// newest snapshot wins.
type Referencer interface {
	Reference() ObjectRef
}

// merging an incoming operation onto a pending one of an incompatible
// kind. a logic error in the calling layer, not a runtime condition.
type OperationConflictError struct {
	Previous OperationKind
	Incoming OperationKind
}

func (self *OperationConflictError) Error() string {
	return fmt.Sprintf("a %s operation cannot merge onto a pending %s operation", self.Incoming, self.Previous)
}

// one pending edit to one field of a remote object
// immutable once constructed
type FieldOperation struct {
	kind            OperationKind
	value           any
	amount          any
	items           []any
	relationAdds    []ObjectRef
	relationRemoves []ObjectRef
}

func NewSetOperation(value any) *FieldOperation {
	return &FieldOperation{
		kind:  OperationSet,
		value: value,
	}
}

func NewDeleteOperation() *FieldOperation {
	return &FieldOperation{
		kind: OperationDelete,
	}
}

func NewIncrementOperation(amount any) *FieldOperation {
	return &FieldOperation{
		kind:   OperationIncrement,
		amount: amount,
	}
}

func NewAddOperation(items ...any) *FieldOperation {
	return &FieldOperation{
		kind:  OperationAdd,
		items: mergeItems(nil, items),
	}
}

func NewAddUniqueOperation(items ...any) *FieldOperation {
	return &FieldOperation{
		kind:  OperationAddUnique,
		items: mergeItems(nil, items),
	}
}

func NewRemoveOperation(items ...any) *FieldOperation {
	return &FieldOperation{
		kind:  OperationRemove,
		items: mergeItems(nil, items),
	}
}

func NewRelationOperation(adds []ObjectRef, removes []ObjectRef) *FieldOperation {
	return &FieldOperation{
		kind:            OperationRelation,
		relationAdds:    dedupRefs(adds),
		relationRemoves: dedupRefs(removes),
	}
}

func (self *FieldOperation) Kind() OperationKind {
	return self.kind
}

func (self *FieldOperation) Items() []any {
	return slices.Clone(self.items)
}

func (self *FieldOperation) Amount() any {
	return self.amount
}

func (self *FieldOperation) RelationAdds() []ObjectRef {
	return slices.Clone(self.relationAdds)
}

func (self *FieldOperation) RelationRemoves() []ObjectRef {
	return slices.Clone(self.relationRemoves)
}

// computes the field value as if the operation had already been
// applied server-side. `old` is the last known server value, nil when
// the field is absent.
func (self *FieldOperation) Apply(old any) (any, error) {
	switch self.kind {
	case OperationSet:
		return self.value, nil
	case OperationDelete:
		return nil, nil
	case OperationIncrement:
		if old == nil {
			old = int64(0)
		}
		return addNumbers(old, self.amount)
	case OperationAdd:
		list, err := listValue(old)
		if err != nil {
			return nil, err
		}
		return append(slices.Clone(list), self.items...), nil
	case OperationAddUnique:
		list, err := listValue(old)
		if err != nil {
			return nil, err
		}
		return mergeItems(list, self.items), nil
	case OperationRemove:
		list, err := listValue(old)
		if err != nil {
			return nil, err
		}
		out := []any{}
		for _, existing := range list {
			removed := false
			for _, item := range self.items {
				if itemsEquivalent(existing, item) {
					removed = true
					break
				}
			}
			if !removed {
				out = append(out, existing)
			}
		}
		return out, nil
	case OperationRelation:
		return nil, fmt.Errorf("a relation operation has no local value")
	}
	return nil, fmt.Errorf("unknown operation kind %s", self.kind)
}

// composes the incoming operation (self) onto whatever operation is
// already pending for the same field. the result is one operation
// with the net effect of both.
func (self *FieldOperation) Merge(previous *FieldOperation) (*FieldOperation, error) {
	if previous == nil {
		return self, nil
	}

	// a new set or delete discards pending history
	switch self.kind {
	case OperationSet, OperationDelete:
		return self, nil
	}

	switch previous.kind {
	case OperationDelete:
		switch self.kind {
		case OperationAdd, OperationAddUnique:
			// deletion wins over history, but the new items must still land
			return NewSetOperation(self.Items()), nil
		}
		return nil, &OperationConflictError{Previous: previous.kind, Incoming: self.kind}
	case OperationSet:
		if self.kind == OperationRelation {
			return nil, &OperationConflictError{Previous: previous.kind, Incoming: self.kind}
		}
		// fold the incoming operation into the pending set value
		value, err := self.Apply(previous.value)
		if err != nil {
			return nil, err
		}
		return NewSetOperation(value), nil
	}

	if previous.kind != self.kind {
		return nil, &OperationConflictError{Previous: previous.kind, Incoming: self.kind}
	}

	switch self.kind {
	case OperationIncrement:
		amount, err := addNumbers(previous.amount, self.amount)
		if err != nil {
			return nil, err
		}
		return NewIncrementOperation(amount), nil
	case OperationAdd:
		return NewAddOperation(append(previous.Items(), self.items...)...), nil
	case OperationAddUnique:
		return NewAddUniqueOperation(append(previous.Items(), self.items...)...), nil
	case OperationRemove:
		return NewRemoveOperation(append(previous.Items(), self.items...)...), nil
	case OperationRelation:
		// last write per item wins
		adds := previous.RelationAdds()
		removes := previous.RelationRemoves()
		for _, ref := range self.relationAdds {
			removes = deleteRef(removes, ref)
			if !slices.Contains(adds, ref) {
				adds = append(adds, ref)
			}
		}
		for _, ref := range self.relationRemoves {
			adds = deleteRef(adds, ref)
			if !slices.Contains(removes, ref) {
				removes = append(removes, ref)
			}
		}
		return NewRelationOperation(adds, removes), nil
	}
	return nil, &OperationConflictError{Previous: previous.kind, Incoming: self.kind}
}

func RequireMerge(previous *FieldOperation, incoming *FieldOperation) *FieldOperation {
	merged, err := incoming.Merge(previous)
	if err != nil {
		panic(err)
	}
	return merged
}

// the json-encodable wire form of the operation
func (self *FieldOperation) WireValue() any {
	switch self.kind {
	case OperationSet:
		return encodeItem(self.value)
	case OperationDelete:
		return map[string]any{"__op": "Delete"}
	case OperationIncrement:
		return map[string]any{"__op": "Increment", "amount": self.amount}
	case OperationAdd:
		return map[string]any{"__op": "Add", "objects": encodeItems(self.items)}
	case OperationAddUnique:
		return map[string]any{"__op": "AddUnique", "objects": encodeItems(self.items)}
	case OperationRemove:
		return map[string]any{"__op": "Remove", "objects": encodeItems(self.items)}
	case OperationRelation:
		ops := []any{}
		if 0 < len(self.relationAdds) {
			ops = append(ops, map[string]any{"__op": "AddRelation", "objects": encodeRefs(self.relationAdds)})
		}
		if 0 < len(self.relationRemoves) {
			ops = append(ops, map[string]any{"__op": "RemoveRelation", "objects": encodeRefs(self.relationRemoves)})
		}
		if len(ops) == 1 {
			return ops[0]
		}
		return map[string]any{"__op": "Batch", "ops": ops}
	}
	return nil
}

func itemRef(item any) (ObjectRef, bool) {
	if ref, ok := item.(Referencer); ok {
		return ref.Reference(), true
	}
	return ObjectRef{}, false
}

func itemsEquivalent(a any, b any) bool {
	refA, okA := itemRef(a)
	refB, okB := itemRef(b)
	if okA || okB {
		return okA && okB && refA == refB
	}
	return reflect.DeepEqual(a, b)
}

// appends items to list, replacing identity matches in place and
// skipping value-equal duplicates
func mergeItems(list []any, items []any) []any {
	out := slices.Clone(list)
	if out == nil {
		out = []any{}
	}
	for _, item := range items {
		if ref, ok := itemRef(item); ok {
			i := slices.IndexFunc(out, func(existing any) bool {
				existingRef, ok := itemRef(existing)
				return ok && existingRef == ref
			})
			if 0 <= i {
				out[i] = item
			} else {
				out = append(out, item)
			}
			continue
		}
		present := slices.ContainsFunc(out, func(existing any) bool {
			return itemsEquivalent(existing, item)
		})
		if !present {
			out = append(out, item)
		}
	}
	return out
}

func dedupRefs(refs []ObjectRef) []ObjectRef {
	out := []ObjectRef{}
	for _, ref := range refs {
		if !slices.Contains(out, ref) {
			out = append(out, ref)
		}
	}
	return out
}

func deleteRef(refs []ObjectRef, ref ObjectRef) []ObjectRef {
	i := slices.Index(refs, ref)
	if i < 0 {
		return refs
	}
	return slices.Delete(refs, i, i+1)
}

func listValue(old any) ([]any, error) {
	if old == nil {
		return []any{}, nil
	}
	if list, ok := old.([]any); ok {
		return list, nil
	}
	v := reflect.ValueOf(old)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		list := make([]any, v.Len())
		for i := 0; i < v.Len(); i += 1 {
			list[i] = v.Index(i).Interface()
		}
		return list, nil
	}
	return nil, fmt.Errorf("cannot apply a list operation to a value of type %T", old)
}

func numberValue(v any) (int64, float64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), float64(n), true, nil
	case int8:
		return int64(n), float64(n), true, nil
	case int16:
		return int64(n), float64(n), true, nil
	case int32:
		return int64(n), float64(n), true, nil
	case int64:
		return n, float64(n), true, nil
	case uint:
		return int64(n), float64(n), true, nil
	case uint8:
		return int64(n), float64(n), true, nil
	case uint16:
		return int64(n), float64(n), true, nil
	case uint32:
		return int64(n), float64(n), true, nil
	case float32:
		return 0, float64(n), false, nil
	case float64:
		return 0, n, false, nil
	}
	return 0, 0, false, fmt.Errorf("cannot increment a non-numeric value of type %T", v)
}

// integer + integer stays integer, otherwise the sum is a float
func addNumbers(a any, b any) (any, error) {
	aInt, aFloat, aIsInt, err := numberValue(a)
	if err != nil {
		return nil, err
	}
	bInt, bFloat, bIsInt, err := numberValue(b)
	if err != nil {
		return nil, err
	}
	if aIsInt && bIsInt {
		return aInt + bInt, nil
	}
	return aFloat + bFloat, nil
}

func encodeItem(item any) any {
	if ref, ok := itemRef(item); ok {
		return ref.pointerValue()
	}
	return item
}

func encodeItems(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = encodeItem(item)
	}
	return out
}

func encodeRefs(refs []ObjectRef) []any {
	out := make([]any, len(refs))
	for i, ref := range refs {
		out[i] = ref.pointerValue()
	}
	return out
}
