package treespec

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/uptree-dev/uptree/resolve"
)

const validDoc = `
root:
  name: app
  provides:
    - type: int
      value: 8080
  children:
    - name: gateway
      provides:
        - type: string
          value: "gw"
      children:
        - name: handler
          needs: [int, string, bool]
          defaults:
            bool: true
`

func TestLoad_Valid(t *testing.T) {
	doc, err := Load("app.yaml", []byte(validDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if doc.Root.Name != "app" {
		t.Errorf("root name = %q, want app", doc.Root.Name)
	}
	if len(doc.Root.Provides) != 1 || doc.Root.Provides[0].Type != "int" || doc.Root.Provides[0].Value != 8080 {
		t.Errorf("root provides = %+v", doc.Root.Provides)
	}
	handler := doc.Root.Children[0].Children[0]
	if handler.Defaults["bool"] != true {
		t.Errorf("handler defaults = %+v", handler.Defaults)
	}
	if want := []string{"int", "string", "bool"}; !reflect.DeepEqual(handler.Needs, want) {
		t.Errorf("handler needs = %v, want %v", handler.Needs, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantCode DocErrorCode
		contains string
	}{
		{
			name:     "malformed yaml",
			doc:      "root:\n  name: [unclosed",
			wantCode: ErrCodeYAML,
		},
		{
			name:     "empty node name",
			doc:      "root:\n  name: \"\"\n",
			wantCode: ErrCodeSchema,
			contains: "name",
		},
		{
			name: "unknown kind",
			doc: `
root:
  name: app
  provides:
    - type: float
      value: 1
`,
			wantCode: ErrCodeSchema,
			contains: "type",
		},
		{
			name: "needs with bad kind",
			doc: `
root:
  name: app
  needs: [duration]
`,
			wantCode: ErrCodeSchema,
		},
		{
			name: "defaults keyed by unknown kind",
			doc: `
root:
  name: app
  defaults:
    float: 1.5
`,
			wantCode: ErrCodeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("doc.yaml", []byte(tt.doc))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			var de *DocError
			if !errors.As(err, &de) {
				t.Fatalf("error is %T, want *DocError", err)
			}
			if de.Code != tt.wantCode {
				t.Errorf("code = %s, want %s: %v", de.Code, tt.wantCode, err)
			}
			if !IsSchemaError(err) {
				t.Errorf("IsSchemaError = false for %v", err)
			}
			if tt.contains != "" && !strings.Contains(de.Message, tt.contains) {
				t.Errorf("message %q does not mention %q", de.Message, tt.contains)
			}
		})
	}
}

func TestLoad_SchemaErrorCarriesPosition(t *testing.T) {
	doc := "root:\n  name: 42\n"
	_, err := Load("bad.yaml", []byte(doc))
	if err == nil {
		t.Fatal("Load succeeded, want schema error")
	}
	// The formatted message must point into the document itself, not at
	// the embedded schema.
	if !strings.Contains(err.Error(), "bad.yaml:") {
		t.Errorf("error %q does not carry a document position", err)
	}
	if strings.Contains(err.Error(), "schema.cue") {
		t.Errorf("error %q points at the schema instead of the document", err)
	}
}

func TestBuild(t *testing.T) {
	doc, err := Load("app.yaml", []byte(validDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tr, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if tr.Root.Name() != "app" {
		t.Errorf("root = %q, want app", tr.Root.Name())
	}
	if len(tr.Order) != 3 {
		t.Fatalf("Order has %d nodes, want 3", len(tr.Order))
	}
	for i, want := range []string{"app", "gateway", "handler"} {
		if tr.Order[i].Name() != want {
			t.Errorf("Order[%d] = %q, want %q", i, tr.Order[i].Name(), want)
		}
	}

	handler := tr.Nodes["handler"]
	if handler == nil {
		t.Fatal("handler missing from index")
	}
	if got := handler.Parent(); got != any(tr.Nodes["gateway"]) {
		t.Errorf("handler.Parent() = %v, want the gateway node itself", got)
	}

	wantNeeds := []reflect.Type{
		reflect.TypeFor[int](),
		reflect.TypeFor[string](),
		reflect.TypeFor[bool](),
	}
	if !reflect.DeepEqual(handler.Needs, wantNeeds) {
		t.Errorf("handler.Needs = %v, want %v", handler.Needs, wantNeeds)
	}

	if len(tr.Providers) != 2 || len(tr.Dependents) != 1 {
		t.Errorf("Providers=%d Dependents=%d, want 2 and 1", len(tr.Providers), len(tr.Dependents))
	}

	caps := tr.Root.Provided()
	if len(caps) != 1 || caps[0].Type != reflect.TypeFor[int]() {
		t.Fatalf("root capabilities = %+v", caps)
	}
	if got := caps[0].Get(); got != 8080 {
		t.Errorf("root int capability = %v, want 8080", got)
	}

	factory, ok := handler.Defaults[reflect.TypeFor[bool]()]
	if !ok {
		t.Fatal("handler has no bool default")
	}
	if got := factory(); got != true {
		t.Errorf("handler bool default = %v, want true", got)
	}
}

func TestBuild_ResolvesAgainstEngine(t *testing.T) {
	doc, err := Load("app.yaml", []byte(validDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tr, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e := resolve.New()
	handler := tr.Nodes["handler"]

	var opts []resolve.ResolveOption
	for typ, factory := range handler.Defaults {
		opts = append(opts, resolve.WithFallbackFor(typ, factory))
	}
	if err := e.Resolve(handler, handler.Needs, opts...); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for _, p := range tr.Providers {
		e.MarkProvided(p)
	}

	port, err := resolve.Read[int](e, handler)
	if err != nil {
		t.Fatalf("Read[int] failed: %v", err)
	}
	if port != 8080 {
		t.Errorf("int = %d, want 8080", port)
	}
	name, err := resolve.Read[string](e, handler)
	if err != nil {
		t.Fatalf("Read[string] failed: %v", err)
	}
	if name != "gw" {
		t.Errorf("string = %q, want gw", name)
	}
	flag, err := resolve.Read[bool](e, handler)
	if err != nil {
		t.Fatalf("Read[bool] failed: %v", err)
	}
	if flag != true {
		t.Error("bool default not applied")
	}
}

func TestBuild_DuplicateName(t *testing.T) {
	doc := &Doc{Root: NodeSpec{
		Name: "app",
		Children: []NodeSpec{
			{Name: "svc"},
			{Name: "svc"},
		},
	}}
	_, err := Build(doc)
	if err == nil {
		t.Fatal("Build succeeded, want DUPLICATE_NAME")
	}
	var de *DocError
	if !errors.As(err, &de) || de.Code != ErrCodeDuplicateName || de.Node != "svc" {
		t.Errorf("error = %v, want DUPLICATE_NAME on svc", err)
	}
}

func TestBuild_BadValue(t *testing.T) {
	tests := []struct {
		name string
		spec NodeSpec
	}{
		{
			name: "int provide with string value",
			spec: NodeSpec{Name: "app", Provides: []ProvideSpec{{Type: "int", Value: "eight"}}},
		},
		{
			name: "bool default with int value",
			spec: NodeSpec{Name: "app", Defaults: map[string]any{"bool": 1}},
		},
		{
			name: "unknown needs kind",
			spec: NodeSpec{Name: "app", Needs: []string{"float"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&Doc{Root: tt.spec})
			if err == nil {
				t.Fatal("Build succeeded, want BAD_VALUE")
			}
			var de *DocError
			if !errors.As(err, &de) || de.Code != ErrCodeBadValue {
				t.Errorf("error = %v, want BAD_VALUE", err)
			}
			if de != nil && de.Node != "app" {
				t.Errorf("node = %q, want app", de.Node)
			}
		})
	}
}

func TestCoerce_Int64(t *testing.T) {
	v, err := coerce("int", int64(7))
	if err != nil {
		t.Fatalf("coerce failed: %v", err)
	}
	if v != 7 {
		t.Errorf("coerce(int64) = %v (%T), want int 7", v, v)
	}
}
