// Package gen is the declarative front end for partial references: it
// scans Go source for aggregates whose fields carry part tags and
// emits the registry code binding each part to its field. The scan is
// purely syntactic; offsets are left to unsafe.Offsetof in the emitted
// code so the generator never needs to know the target's layout.
package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// tagKey is the struct tag fields use to opt into a part table.
// `part:"Name"` maps the field to the named part, `part:""` derives
// the part name from the field name, `part:"-"` excludes the field.
const tagKey = "part"

// Aggregate is one struct eligible for partial-reference
// decomposition.
type Aggregate struct {
	Name     string
	Fields   []Field
	Excluded []string
}

// Field is one mapped field of an aggregate.
type Field struct {
	Name string // struct field name
	Part string // part identifier
	Type string // field type expression, verbatim from source
}

// ScanResult holds everything the emitter needs to know about one
// source file.
type ScanResult struct {
	Package    string
	Aggregates []Aggregate
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// PartNameFor derives an exported part identifier from a field name.
// Both lower_snake and lowerCamel field names map to CamelCase.
func PartNameFor(field string) string {
	var b strings.Builder
	for _, piece := range strings.Split(field, "_") {
		if piece == "" {
			continue
		}
		b.WriteString(titleCaser.String(piece))
	}
	return b.String()
}

// ScanFile parses one Go source file and collects every struct whose
// fields carry part tags. Structs without part tags are ignored.
func ScanFile(path string, src []byte) (*ScanResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("gen: %w", err)
	}
	res := &ScanResult{Package: file.Name.Name}
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			agg, tagged, err := scanStruct(fset, ts.Name.Name, st)
			if err != nil {
				return nil, fmt.Errorf("gen: %s: %w", path, err)
			}
			if tagged {
				res.Aggregates = append(res.Aggregates, agg)
			}
		}
	}
	return res, nil
}

func scanStruct(fset *token.FileSet, name string, st *ast.StructType) (Aggregate, bool, error) {
	agg := Aggregate{Name: name}
	tagged := false
	seen := make(map[string]string) // part name -> field name
	var unmapped []string

	for _, f := range st.Fields.List {
		tagVal, hasTag := fieldTag(f)
		if hasTag && len(f.Names) == 0 {
			return agg, false, fmt.Errorf("struct %s: embedded field cannot carry a part tag", name)
		}
		if !hasTag {
			for _, n := range f.Names {
				unmapped = append(unmapped, n.Name)
			}
			if len(f.Names) == 0 {
				unmapped = append(unmapped, typeString(fset, f.Type))
			}
			continue
		}
		tagged = true
		if tagVal == "-" {
			for _, n := range f.Names {
				agg.Excluded = append(agg.Excluded, n.Name)
			}
			continue
		}
		if tagVal != "" && len(f.Names) > 1 {
			return agg, false, fmt.Errorf("struct %s: part %s would cover %d fields; name each field separately",
				name, tagVal, len(f.Names))
		}
		for _, n := range f.Names {
			partName := tagVal
			if partName == "" {
				partName = PartNameFor(n.Name)
			}
			if err := checkPartIdent(partName); err != nil {
				return agg, false, fmt.Errorf("struct %s, field %s: %w", name, n.Name, err)
			}
			if prev, dup := seen[partName]; dup {
				return agg, false, fmt.Errorf("struct %s: part %s declared for both %s and %s",
					name, partName, prev, n.Name)
			}
			seen[partName] = n.Name
			agg.Fields = append(agg.Fields, Field{
				Name: n.Name,
				Part: partName,
				Type: typeString(fset, f.Type),
			})
		}
	}
	if !tagged {
		return agg, false, nil
	}
	if len(unmapped) > 0 {
		return agg, false, fmt.Errorf("struct %s: fields %s carry no part tag; map them or exclude them with `part:\"-\"`",
			name, strings.Join(unmapped, ", "))
	}
	if len(agg.Fields) == 0 {
		return agg, false, fmt.Errorf("struct %s: every field is excluded; nothing to decompose", name)
	}
	return agg, true, nil
}

// fieldTag extracts the part tag value. The second result
// distinguishes a missing tag from an empty one.
func fieldTag(f *ast.Field) (string, bool) {
	if f.Tag == nil {
		return "", false
	}
	raw, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return "", false
	}
	return reflect.StructTag(raw).Lookup(tagKey)
}

func checkPartIdent(name string) error {
	for i, r := range name {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return fmt.Errorf("part name %s must be an exported identifier", name)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("part name %s is not a valid identifier", name)
		}
	}
	if name == "" {
		return fmt.Errorf("empty part name")
	}
	return nil
}

func typeString(fset *token.FileSet, expr ast.Expr) string {
	var b bytes.Buffer
	if err := printer.Fprint(&b, fset, expr); err != nil {
		return ""
	}
	return b.String()
}
