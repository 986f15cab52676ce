package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idiap/twister/generichttp"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func TestGraph(t *testing.T) {
	g := NewGraph()
	g.Add("/twister", table{
		{Method: http.MethodPost, Path: "/reset"}:          nil,
		{Method: http.MethodGet, Path: "/axis/{axis}/pos"}: nil,
	})
	assert.Equal(t, 1, g.Stems())

	rec := httptest.NewRecorder()
	g.HTTPList(rec, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"/twister": ["GET /axis/{axis}/pos", "POST /reset"]}`, rec.Body.String())
}
