package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Annotation
		wantErr bool
	}{
		{name: "plain code", line: "let x = 1;"},
		{name: "plain comment", line: "// transforms the triangle"},
		{name: "prefix outside comment", line: `let s = "@mv:include";`},
		{
			name: "include",
			line: "//@mv:include view_transforms",
			want: &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArgViewTransforms}, Line: 7},
		},
		{
			name: "view index with indent",
			line: "    //@mv:view_index",
			want: &Annotation{Type: AnnotationTypeViewIndex, Line: 7},
		},
		{name: "empty", line: "//@mv:", wantErr: true},
		{name: "unknown type", line: "//@mv:provider 0 0 x", wantErr: true},
		{name: "unknown struct", line: "//@mv:include camera", wantErr: true},
		{name: "include without arg", line: "//@mv:include", wantErr: true},
		{name: "group wrong arity", line: "//@mv:group 0 0 uniform transforms", wantErr: true},
		{name: "group bad number", line: "//@mv:group x 0 uniform transforms view_transforms", wantErr: true},
		{name: "group negative binding", line: "//@mv:group 0 -1 uniform transforms view_transforms", wantErr: true},
		{name: "group bad space", line: "//@mv:group 0 0 private transforms view_transforms", wantErr: true},
		{name: "view index with args", line: "//@mv:view_index 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.line, 7)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "line 7")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGroupAnnotation(t *testing.T) {
	a, err := parseAnnotation("//@mv:group 1 2 storage_read views view_transforms", 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeBindingGroup, a.Type)
	assert.Equal(t, 1, *a.Group)
	assert.Equal(t, 2, *a.Binding)
	assert.Equal(t, []AnnotationArg{"storage_read", "views", AnnotationArgViewTransforms}, a.Args)
}
