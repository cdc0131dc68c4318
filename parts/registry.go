package parts

import (
	"fmt"
	"reflect"
	"sort"

	"fortio.org/safecast"
)

// FieldInfo describes the storage backing one part: the field's value
// type and the rule for computing its address relative to the
// aggregate's base address.
type FieldInfo struct {
	ID     ID
	Name   string
	Offset uintptr
	Size   uintptr
	Type   reflect.Type
}

// Builder accumulates part declarations for aggregate T prior to
// validation. Builders are filled by generated code: one Add per mapped
// field plus an Exclude per field deliberately left out of the table.
type Builder[T any] struct {
	fields   []FieldInfo // index 0 reserved as invalid sentinel
	byName   map[string]ID
	excluded map[string]struct{}
	errs     []error
}

// NewBuilder returns an empty builder for aggregate T.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		fields:   make([]FieldInfo, 1),
		byName:   make(map[string]ID, 8),
		excluded: make(map[string]struct{}),
	}
}

// Add declares a part backed by the field of type F at offset within T.
// The returned key is the only way to address the part through the
// accessor API. Declaration problems are deferred to Build so generated
// code can stay a flat var block.
func Add[T, F any](b *Builder[T], name string, offset uintptr) Key[T, F] {
	if b == nil {
		return Key[T, F]{}
	}
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("parts: empty part name at offset %d", offset))
		return Key[T, F]{}
	}
	if _, dup := b.byName[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("parts: duplicate part %s", name))
		return Key[T, F]{}
	}
	if len(b.fields) > MaxParts {
		b.errs = append(b.errs, fmt.Errorf("parts: part %s exceeds the cap of %d parts", name, MaxParts))
		return Key[T, F]{}
	}
	raw, err := safecast.Conv[uint32](len(b.fields))
	if err != nil {
		panic(fmt.Errorf("parts: part count overflow: %w", err))
	}
	id := ID(raw)
	ft := reflect.TypeOf((*F)(nil)).Elem()
	b.fields = append(b.fields, FieldInfo{
		ID:     id,
		Name:   name,
		Offset: offset,
		Size:   ft.Size(),
		Type:   ft,
	})
	b.byName[name] = id
	return Key[T, F]{id: id}
}

// Exclude marks a field of T, by field name, as deliberately absent
// from the part table.
func (b *Builder[T]) Exclude(fieldName string) *Builder[T] {
	if b != nil {
		b.excluded[fieldName] = struct{}{}
	}
	return b
}

// Build validates the declarations against the declared shape of T and
// freezes them into a registry. The table must be complete: every field
// of T mapped to exactly one part or explicitly excluded, no duplicate
// parts, no two parts aliasing the same storage.
func (b *Builder[T]) Build() (*Registry[T], error) {
	if b == nil {
		return nil, fmt.Errorf("parts: nil builder")
	}
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parts: aggregate %s is not a struct", t)
	}

	byOffset := make(map[uintptr]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		byOffset[t.Field(i).Offset] = i
	}
	claimed := make([]bool, t.NumField())
	for _, info := range b.fields[1:] {
		fi, ok := byOffset[info.Offset]
		if !ok {
			return nil, fmt.Errorf("parts: part %s does not start at a field of %s", info.Name, t)
		}
		field := t.Field(fi)
		if field.Type != info.Type {
			return nil, fmt.Errorf("parts: part %s declared as %s but field %s.%s is %s",
				info.Name, info.Type, t.Name(), field.Name, field.Type)
		}
		if claimed[fi] {
			return nil, fmt.Errorf("parts: field %s.%s is claimed by more than one part", t.Name(), field.Name)
		}
		if _, excl := b.excluded[field.Name]; excl {
			return nil, fmt.Errorf("parts: field %s.%s is both mapped to %s and excluded", t.Name(), field.Name, info.Name)
		}
		claimed[fi] = true
	}
	for i := 0; i < t.NumField(); i++ {
		if claimed[i] {
			continue
		}
		name := t.Field(i).Name
		if _, excl := b.excluded[name]; excl {
			continue
		}
		return nil, fmt.Errorf("parts: field %s.%s is neither mapped to a part nor excluded", t.Name(), name)
	}
	for name := range b.excluded {
		if _, ok := t.FieldByName(name); !ok {
			return nil, fmt.Errorf("parts: excluded field %s does not exist on %s", name, t)
		}
	}
	if err := checkStorageDisjoint(b.fields[1:]); err != nil {
		return nil, err
	}

	reg := &Registry[T]{
		fields: b.fields,
		byName: b.byName,
	}
	for _, info := range b.fields[1:] {
		reg.all = reg.all.Insert(Mut(info.ID))
	}
	return reg, nil
}

// MustBuild panics when the table is invalid. Generated code uses this:
// a bad table is a front-end defect, not a runtime condition.
func (b *Builder[T]) MustBuild() *Registry[T] {
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return reg
}

// checkStorageDisjoint verifies that no two parts cover overlapping
// byte ranges. The field pairing above already implies this for exact
// matches; this guards the accessor against a malformed table slipping
// through future loosening of that pairing.
func checkStorageDisjoint(infos []FieldInfo) error {
	sorted := make([]FieldInfo, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Size > 0 && cur.Size > 0 && prev.Offset+prev.Size > cur.Offset {
			return fmt.Errorf("parts: parts %s and %s alias overlapping storage", prev.Name, cur.Name)
		}
	}
	return nil
}

// Registry is the frozen part table for aggregate T: built once from
// the aggregate's field declarations and never mutated afterwards.
type Registry[T any] struct {
	fields []FieldInfo
	byName map[string]ID
	all    Set
}

// Len returns the number of declared parts.
func (r *Registry[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields) - 1
}

// Field returns the descriptor for a part.
func (r *Registry[T]) Field(id ID) (FieldInfo, bool) {
	if r == nil || id == NoID || int(id) >= len(r.fields) {
		return FieldInfo{}, false
	}
	return r.fields[id], true
}

// MustField panics when id is not a part of this registry.
func (r *Registry[T]) MustField(id ID) FieldInfo {
	info, ok := r.Field(id)
	if !ok {
		panic("parts: invalid part ID")
	}
	return info
}

// Lookup resolves a part by name.
func (r *Registry[T]) Lookup(name string) (ID, bool) {
	if r == nil {
		return NoID, false
	}
	id, ok := r.byName[name]
	return id, ok
}

// PartName returns the part's name, or a numeric placeholder for ids
// the registry does not know.
func (r *Registry[T]) PartName(id ID) string {
	if info, ok := r.Field(id); ok {
		return info.Name
	}
	return fmt.Sprintf("part#%d", id)
}

// All returns the state granting exclusive access to every part.
func (r *Registry[T]) All() Set {
	if r == nil {
		return Set{}
	}
	return r.all
}

// AllShared returns the state granting shared access to every part.
func (r *Registry[T]) AllShared() Set {
	return r.All().Downgrade()
}
