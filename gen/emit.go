package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"
)

// DefaultPartsImport is the import path of the parts package in the
// emitted code; overridable for vendored or forked layouts.
const DefaultPartsImport = "partref/parts"

const fileTemplate = `// Code generated by partref; DO NOT EDIT.

package {{.Package}}

import (
	"unsafe"

	parts "{{.PartsImport}}"
)
{{range .Aggregates}}
var {{builderVar .Name}} = parts.NewBuilder[{{.Name}}]()

// Parts of {{.Name}}.
var (
{{- $agg := .}}
{{- range .Fields}}
	{{$agg.Name}}{{.Part}} = parts.Add[{{$agg.Name}}, {{.Type}}]({{builderVar $agg.Name}}, {{printf "%q" .Part}}, unsafe.Offsetof({{$agg.Name}}{}.{{.Name}}))
{{- end}}
)

// {{.Name}}Registry is the frozen part table for {{.Name}}.
var {{.Name}}Registry = {{builderVar .Name}}.
{{- range .Excluded}}
	Exclude({{printf "%q" .}}).
{{- end}}
	MustBuild()
{{end}}`

var emitTemplate = template.Must(template.New("parts").Funcs(template.FuncMap{
	"builderVar": builderVar,
}).Parse(fileTemplate))

type emitContext struct {
	Package     string
	PartsImport string
	Aggregates  []Aggregate
}

// builderVar names the unexported builder variable for an aggregate.
func builderVar(name string) string {
	return lowerFirst(name) + "PartsBuilder"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// Emit renders the registry file for a scan result, gofmt'ed. Output
// is nil when the file declares no aggregates.
func Emit(res *ScanResult, partsImport string) ([]byte, error) {
	if res == nil || len(res.Aggregates) == 0 {
		return nil, nil
	}
	if partsImport == "" {
		partsImport = DefaultPartsImport
	}
	// Builder var names fold the aggregate's first letter to lower
	// case, so Graph and graph would collide in one file.
	byVar := make(map[string]string, len(res.Aggregates))
	for _, agg := range res.Aggregates {
		v := builderVar(agg.Name)
		if prev, dup := byVar[v]; dup {
			return nil, fmt.Errorf("gen: aggregates %s and %s collide on generated identifier %s", prev, agg.Name, v)
		}
		byVar[v] = agg.Name
	}
	var b bytes.Buffer
	err := emitTemplate.Execute(&b, emitContext{
		Package:     res.Package,
		PartsImport: partsImport,
		Aggregates:  res.Aggregates,
	})
	if err != nil {
		return nil, fmt.Errorf("gen: template: %w", err)
	}
	out, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gen: emitted code does not format: %w", err)
	}
	return out, nil
}
