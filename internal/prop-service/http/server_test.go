package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/prop-service/dto"
	"github.com/radieske/prop-parlay-platform/internal/prop-service/repo"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

type fakeRepo struct {
	props map[string]model.Prop
	seq   int
}

func (f *fakeRepo) Create(_ context.Context, p *model.Prop) error {
	f.seq++
	p.ID = "p-" + strconv.Itoa(f.seq)
	f.props[p.ID] = *p
	return nil
}

func (f *fakeRepo) ListVisible(context.Context) ([]model.Prop, error) {
	var out []model.Prop
	for _, p := range f.props {
		if !p.Hidden {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Hide(_ context.Context, id string) error {
	p, ok := f.props[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Hidden = true
	f.props[id] = p
	return nil
}

func (f *fakeRepo) UpdateResult(_ context.Context, id string, r repo.Result) (model.Prop, error) {
	p, ok := f.props[id]
	if !ok {
		return model.Prop{}, repo.ErrNotFound
	}
	p.ActualScore, p.RefundStatus, p.GameComplete = r.ActualScore, r.RefundStatus, r.GameComplete
	f.props[id] = p
	return p, nil
}

type fakePublisher struct{ published []model.Prop }

func (f *fakePublisher) PublishPropResult(_ context.Context, p model.Prop) error {
	f.published = append(f.published, p)
	return nil
}

func setup() (*fakeRepo, *fakePublisher, http.Handler) {
	r := &fakeRepo{props: map[string]model.Prop{}}
	p := &fakePublisher{}
	return r, p, NewServer(zap.NewNop(), r, p).Router()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndList(t *testing.T) {
	r, _, h := setup()

	rec := do(h, http.MethodPost, "/v1/props", `{"player":"Jayson Tatum","team":"BOS","opponent":"MIA","stat":"Points","line":27.5,"game_time":"2026-03-01T23:30:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, r.props, 1)

	rec = do(h, http.MethodGet, "/v1/props", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.PropResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Jayson Tatum", list[0].Player)
}

func TestCreate_Invalid(t *testing.T) {
	_, _, h := setup()
	rec := do(h, http.MethodPost, "/v1/props", `{"player":"","team":"BOS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(h, http.MethodPost, "/v1/props", `{"player":"A","team":"BOS","opponent":"MIA","stat":"Points","line":-1,"game_time":"2026-03-01T23:30:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHide(t *testing.T) {
	r, _, h := setup()
	r.props["p-1"] = model.Prop{ID: "p-1"}

	rec := do(h, http.MethodPost, "/v1/props/p-1/hide", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, r.props["p-1"].Hidden)

	rec = do(h, http.MethodPost, "/v1/props/ghost/hide", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostResult_PublishesTrigger(t *testing.T) {
	r, pub, h := setup()
	r.props["p-1"] = model.Prop{ID: "p-1", Line: 10.5}

	rec := do(h, http.MethodPut, "/v1/props/p-1/result", `{"actualScore":12,"refundStatus":false,"gameComplete":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "p-1", pub.published[0].ID)
	assert.True(t, pub.published[0].GameComplete)
	assert.Equal(t, 12.0, *r.props["p-1"].ActualScore)
}

func TestPostResult_Rejections(t *testing.T) {
	r, pub, h := setup()
	r.props["p-1"] = model.Prop{ID: "p-1"}

	rec := do(h, http.MethodPut, "/v1/props/p-1/result", `{"actualScore":-3,"gameComplete":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPut, "/v1/props/ghost/result", `{"refundStatus":true,"gameComplete":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, pub.published)
}
