package tools

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"

	apperrors "thoth/backend/pkg/errors"
)

func okHandler(result interface{}) Handler {
	return func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
		return result, nil
	}
}

func TestRegisterRejectsUndeclaredRequiredParam(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name:        "broken_tool",
		Description: "schema and handler disagree",
		Params:      []Param{{Name: "filename"}},
		Required:    []string{"filename", "content"},
		Handler:     okHandler("ok"),
	})
	if err == nil {
		t.Fatal("expected registration to fail for undeclared required param")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeTool) {
		t.Errorf("expected tool error type, got %v", err)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	def := Definition{Name: "dup", Handler: okHandler("ok")}
	if err := r.Register(def); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register(def); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegisterRejectsMissingHandler(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Definition{Name: "no_handler"}); err == nil {
		t.Fatal("expected registration without handler to fail")
	}
}

func TestMappedFunctionsShape(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name:        "demo_tool",
		Description: "A demo tool",
		Params: []Param{
			{Name: "city", Description: "City name"},
			{Name: "units"},
		},
		Required: []string{"city"},
		Handler:  okHandler("ok"),
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	mapped := r.MappedFunctions()
	if len(mapped) != 1 {
		t.Fatalf("expected 1 mapped function, got %d", len(mapped))
	}
	tool := mapped[0]
	if tool.Type != openai.ToolTypeFunction {
		t.Errorf("expected function tool type, got %s", tool.Type)
	}
	if tool.Function.Name != "demo_tool" || tool.Function.Description != "A demo tool" {
		t.Errorf("unexpected function metadata: %+v", tool.Function)
	}

	params, ok := tool.Function.Parameters.(map[string]interface{})
	if !ok {
		t.Fatalf("parameters is not a map: %T", tool.Function.Parameters)
	}
	if params["type"] != "object" {
		t.Errorf("expected type object, got %v", params["type"])
	}

	properties := params["properties"].(map[string]interface{})
	city := properties["city"].(map[string]interface{})
	if city["type"] != "string" || city["description"] != "City name" {
		t.Errorf("unexpected city schema: %v", city)
	}
	units := properties["units"].(map[string]interface{})
	if units["description"] != "No description" {
		t.Errorf("expected placeholder description, got %v", units["description"])
	}

	required := params["required"].([]string)
	if len(required) != 1 || required[0] != "city" {
		t.Errorf("unexpected required list: %v", required)
	}
}

func TestMappedFunctionsPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Register(Definition{Name: name, Handler: okHandler("ok")}); err != nil {
			t.Fatalf("registration failed: %v", err)
		}
	}

	names := r.Names()
	want := []string{"alpha", "beta", "gamma"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("position %d: expected %s, got %s", i, name, names[i])
		}
	}

	mapped := r.MappedFunctions()
	for i, name := range want {
		if mapped[i].Function.Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, mapped[i].Function.Name)
		}
	}
}

func TestResolveUnknownToolIsConsistent(t *testing.T) {
	r := NewRegistry()
	req := RequestContext{UserID: 1}

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), req, "unknown_tool", map[string]interface{}{})
		if err == nil {
			t.Fatalf("attempt %d: expected error for unknown tool", i)
		}
		if !apperrors.IsErrorType(err, apperrors.ErrorTypeTool) {
			t.Errorf("attempt %d: expected tool error type, got %v", i, err)
		}
	}
}

func TestResolveContainsHandlerError(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name: "failing_tool",
		Handler: func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
			return nil, apperrors.NewToolExecutionFailed("failing_tool", "backing service down", nil)
		},
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	result, err := r.Resolve(context.Background(), RequestContext{}, "failing_tool", nil)
	if err != nil {
		t.Fatalf("handler error must not propagate, got %v", err)
	}

	payload := result.(map[string]interface{})
	if payload["status"] != "error" {
		t.Errorf("expected error status, got %v", payload["status"])
	}
	if payload["message"] == "" {
		t.Error("expected non-empty error message")
	}
}

func TestResolveContainsPanic(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name: "panicking_tool",
		Handler: func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
			panic("nil map write")
		},
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	result, err := r.Resolve(context.Background(), RequestContext{}, "panicking_tool", nil)
	if err != nil {
		t.Fatalf("panic must not propagate as error, got %v", err)
	}

	payload := result.(map[string]interface{})
	if payload["status"] != "error" {
		t.Errorf("expected error status, got %v", payload["status"])
	}
	if payload["message"] != "nil map write" {
		t.Errorf("expected panic value as message, got %v", payload["message"])
	}
}

func TestResolvePassesEmptyArgsForNil(t *testing.T) {
	r := NewRegistry()
	var gotArgs map[string]interface{}
	err := r.Register(Definition{
		Name: "echo_args",
		Handler: func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
			gotArgs = args
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if _, err := r.Resolve(context.Background(), RequestContext{}, "echo_args", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if gotArgs == nil {
		t.Error("expected handler to receive a non-nil args map")
	}
	if len(gotArgs) != 0 {
		t.Errorf("expected empty args map, got %v", gotArgs)
	}
}

func TestResolveThreadsRequestContext(t *testing.T) {
	r := NewRegistry()
	var got RequestContext
	err := r.Register(Definition{
		Name: "ctx_probe",
		Handler: func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
			got = req
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	want := RequestContext{UserID: 7, Query: "send a text", Source: "sms", ChatID: "sms_123"}
	if _, err := r.Resolve(context.Background(), want, "ctx_probe", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("expected request context %+v, got %+v", want, got)
	}
}
