package request

import "net/http"

// MethodBuilder selects the HTTP method of its parent Builder. Every
// method sets the verb and hands back the parent to continue the chain.
type MethodBuilder struct {
	builder *Builder
}

func (m *MethodBuilder) Get() *Builder     { return m.builder.WithMethod(http.MethodGet) }
func (m *MethodBuilder) Post() *Builder    { return m.builder.WithMethod(http.MethodPost) }
func (m *MethodBuilder) Put() *Builder     { return m.builder.WithMethod(http.MethodPut) }
func (m *MethodBuilder) Delete() *Builder  { return m.builder.WithMethod(http.MethodDelete) }
func (m *MethodBuilder) Head() *Builder    { return m.builder.WithMethod(http.MethodHead) }
func (m *MethodBuilder) Options() *Builder { return m.builder.WithMethod(http.MethodOptions) }
func (m *MethodBuilder) Trace() *Builder   { return m.builder.WithMethod(http.MethodTrace) }
func (m *MethodBuilder) Patch() *Builder   { return m.builder.WithMethod(http.MethodPatch) }
