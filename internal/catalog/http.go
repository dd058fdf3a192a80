package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/money"
	"MiniCatalog/pkg/kit"
)

const maxBody = 1 << 20

type Server struct {
	Catalog *Catalog
	Log     *zap.Logger
	Metrics *Metrics

	// Optional guards for mutating routes.
	Tokens  *auth.TokenMaker
	Limiter *kit.IPRateLimiter
}

type insertReq struct {
	Price money.Money `json:"price"`
	Tags  []int64     `json:"tags"`
}

type removeTagsReq struct {
	Tags []int64 `json:"tags"`
}

type priceHikeReq struct {
	Low  int64   `json:"low"`
	High int64   `json:"high"`
	Rate float64 `json:"rate"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
	r.Get("/products/{id}/price", s.find)
	r.Get("/tags/{tag}/min", s.minPrice)
	r.Get("/tags/{tag}/max", s.maxPrice)
	r.Get("/tags/{tag}/range", s.priceRange)

	r.Group(func(mr chi.Router) {
		if s.Limiter != nil {
			mr.Use(s.Limiter.Middleware)
		}
		if s.Tokens != nil {
			mr.Use(RequireOperator(s.Tokens))
		}
		mr.Put("/products/{id}", s.insert)
		mr.Delete("/products/{id}", s.delete)
		mr.Post("/products/{id}/tags/remove", s.removeTags)
		mr.Post("/price-hike", s.priceHike)
	})

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.Metrics.observe("list")
	kit.WriteJSON(w, http.StatusOK, s.Catalog.List())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	s.Metrics.observe("get")

	rec, found := s.Catalog.Record(id)
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	s.Metrics.observe("find")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"price": s.Catalog.Find(id)})
}

func (s *Server) insert(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var req insertReq
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.Metrics.observe("insert")

	isNew := s.Catalog.Insert(id, req.Price, req.Tags)
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	kit.WriteJSON(w, status, map[string]any{"new": isNew})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	s.Metrics.observe("delete")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"sum": s.Catalog.Delete(id)})
}

func (s *Server) removeTags(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var req removeTagsReq
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.Metrics.observe("remove_tags")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"sum": s.Catalog.RemoveTags(id, req.Tags)})
}

func (s *Server) minPrice(w http.ResponseWriter, r *http.Request) {
	tag, ok := int64Param(w, r, "tag")
	if !ok {
		return
	}
	s.Metrics.observe("min_price")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"price": s.Catalog.FindMinPrice(tag)})
}

func (s *Server) maxPrice(w http.ResponseWriter, r *http.Request) {
	tag, ok := int64Param(w, r, "tag")
	if !ok {
		return
	}
	s.Metrics.observe("max_price")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"price": s.Catalog.FindMaxPrice(tag)})
}

func (s *Server) priceRange(w http.ResponseWriter, r *http.Request) {
	tag, ok := int64Param(w, r, "tag")
	if !ok {
		return
	}

	q := r.URL.Query()
	low, err := money.Parse(q.Get("low"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	high, err := money.Parse(q.Get("high"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	s.Metrics.observe("price_range")
	kit.WriteJSON(w, http.StatusOK, map[string]any{"count": s.Catalog.FindPriceRange(tag, low, high)})
}

func (s *Server) priceHike(w http.ResponseWriter, r *http.Request) {
	var req priceHikeReq
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.Metrics.observe("price_hike")

	inc := s.Catalog.PriceHike(req.Low, req.High, req.Rate)
	if s.Log != nil {
		op, _ := OperatorFromContext(r.Context())
		s.Log.Info("price hike applied",
			zap.Int64("low", req.Low),
			zap.Int64("high", req.High),
			zap.Float64("rate", req.Rate),
			zap.Stringer("increase", inc),
			zap.String("operator", op),
		)
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"increase": inc})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var pe *money.ParseError
	if errors.As(err, &pe) {
		kit.WriteError(w, r, http.StatusBadRequest, "bad price", map[string]any{"literal": pe.Literal})
		return
	}
	kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad "+name, map[string]any{name: raw})
		return 0, false
	}
	return v, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
