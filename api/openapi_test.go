package api

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oasdiff/yaml"
)

// TestOpenAPISpecValid 校验内嵌的 OpenAPI 文档可加载且自洽
func TestOpenAPISpecValid(t *testing.T) {
	data, err := OpenAPIFS.ReadFile("openapi/openapi.yaml")
	if err != nil {
		t.Fatalf("read embedded spec: %v", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate spec: %v", err)
	}

	// 核心路径必须存在
	required := []string{
		"/api/v1/projects/{id}/generate",
		"/api/v1/executions/{id}",
		"/api/v1/projects/{id}/chat",
		"/api/v1/projects/{id}/prompts",
		"/api/v1/auth/login",
	}
	for _, p := range required {
		if doc.Paths.Find(p) == nil {
			t.Errorf("spec missing path %s", p)
		}
	}
}

// TestOpenAPISpecMetadata 校验文档元信息
func TestOpenAPISpecMetadata(t *testing.T) {
	data, err := OpenAPIFS.ReadFile("openapi/openapi.yaml")
	if err != nil {
		t.Fatalf("read embedded spec: %v", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	if raw["openapi"] != "3.0.3" {
		t.Errorf("openapi version = %v, want 3.0.3", raw["openapi"])
	}
	info, ok := raw["info"].(map[string]interface{})
	if !ok || info["title"] == "" {
		t.Error("spec must declare info.title")
	}
}
