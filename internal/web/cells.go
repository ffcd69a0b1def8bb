package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/metrics"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/session"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

type previewRequest struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
}

// handlePreview diffs two texts without storing anything. A missing or
// null text is invalid input.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Primary == nil || req.Secondary == nil {
		s.writeError(w, fmt.Errorf("%w: primary and secondary are required", errBadRequest))
		return
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	out, err := s.svc.Preview(ctx, *req.Primary, *req.Secondary)
	s.metrics.Previews.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type cellView struct {
	store.CellJSON
	Diff      render.Cell     `json:"diff"`
	Approvals store.Approvals `json:"approvals"`
	Comment   string          `json:"comment,omitempty"`
}

func viewOf(rd *service.Rendered) cellView {
	return cellView{
		CellJSON:  rd.Cell.ToJSON(true),
		Diff:      rd.Diff,
		Approvals: rd.Approvals,
		Comment:   rd.Comment,
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	rd, err := s.svc.Render(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rd))
}

// listOptions reads list filters from the query string.
func listOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Prefix:         q.Get("prefix"),
		Query:          q.Get("q"),
		Status:         q.Get("status"),
		Approval:       q.Get("approval"),
		ApprovalColumn: q.Get("column"),
		Sort:           q.Get("sort"),
	}
	ratio := func(key string) (*float64, error) {
		v := q.Get(key)
		if v == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a number", errBadRequest, key, v)
		}
		return &f, nil
	}
	integer := func(key string) (int, error) {
		v := q.Get(key)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %s=%q is not a non-negative integer", errBadRequest, key, v)
		}
		return n, nil
	}

	var err error
	if opts.MinRatio, err = ratio("min"); err != nil {
		return opts, err
	}
	if opts.MaxRatio, err = ratio("max"); err != nil {
		return opts, err
	}
	if opts.Below, err = ratio("lt"); err != nil {
		return opts, err
	}
	if opts.Above, err = ratio("gt"); err != nil {
		return opts, err
	}
	if opts.Limit, err = integer("limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = integer("offset"); err != nil {
		return opts, err
	}
	return opts, nil
}

type listResponse struct {
	Cells []store.CellJSON `json:"cells"`
	Total int64            `json:"total"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	cells, err := s.svc.List(ctx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.svc.Count(ctx, opts.Prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := listResponse{Cells: make([]store.CellJSON, len(cells)), Total: total}
	for i := range cells {
		out.Cells[i] = cells[i].ToJSON(true)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: limit=%q", errBadRequest, v))
			return
		}
		limit = n
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	h, err := s.svc.History(ctx, r.PathValue("id"), limit, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]store.CellJSON, len(h))
	for i := range h {
		out[i] = h[i].ToJSON(true)
	}
	writeJSON(w, http.StatusOK, out)
}

type saveRequest struct {
	Text    *string `json:"text"`
	Message string  `json:"message"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Text == nil {
		s.writeError(w, fmt.Errorf("%w: text is required", errBadRequest))
		return
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	res, err := s.svc.Save(ctx, r.PathValue("id"), *req.Text, s.author, req.Message)
	s.metrics.Saves.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type approveRequest struct {
	Column string `json:"column"`
	Status string `json:"status"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	id := r.PathValue("id")
	if req.Column == "" {
		req.Column = validate.ColumnSecondary
	}
	if err := s.svc.Approve(ctx, id, req.Column, req.Status, s.author); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeApprovals(w, r, id)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	id := r.PathValue("id")
	if err := s.svc.ResetApproval(ctx, id, s.author); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeApprovals(w, r, id)
}

func (s *Server) writeApprovals(w http.ResponseWriter, r *http.Request, id string) {
	a, err := s.svc.Approvals(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type commentBody struct {
	Comment string `json:"comment"`
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	c, err := s.svc.Comment(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentBody{Comment: c})
}

func (s *Server) handleSaveComment(w http.ResponseWriter, r *http.Request) {
	var req commentBody
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	id := r.PathValue("id")
	if err := s.svc.SaveComment(ctx, id, req.Comment, s.author); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.Comment(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentBody{Comment: c})
}

type regenerateRequest struct {
	IDs     []string `json:"ids,omitempty"`
	Variant string   `json:"variant"`
	Custom  string   `json:"custom,omitempty"`
}

func (s *Server) generateRequest(req regenerateRequest) (generate.Request, error) {
	if s.gen == nil {
		return generate.Request{}, session.ErrNoGenerator
	}
	v, err := generate.ParseVariant(req.Variant)
	if err != nil {
		return generate.Request{}, err
	}
	return generate.Request{Variant: v, Custom: req.Custom, Author: s.author}, nil
}

func (s *Server) countRegenerated(v generate.Variant, res *generate.Result) {
	s.metrics.Regenerated.WithLabelValues(string(v), metrics.Result(res.Err)).Inc()
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	greq, err := s.generateRequest(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Generation is slow; it is bounded by the provider retries, not the
	// request timeout.
	res := s.gen.Regenerate(r.Context(), r.PathValue("id"), greq)
	s.countRegenerated(greq.Variant, res)
	if res.Err != nil {
		s.writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type bulkResponse struct {
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []*generate.Result `json:"results"`
}

func (s *Server) handleRegenerateAll(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, fmt.Errorf("%w: no cell ids given", errBadRequest))
		return
	}
	greq, err := s.generateRequest(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := bulkResponse{Results: s.gen.RegenerateAll(r.Context(), req.IDs, greq)}
	for _, res := range out.Results {
		s.countRegenerated(greq.Variant, res)
		if res.Err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type ratiosRequest struct {
	Prefix string `json:"prefix"`
}

func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	var req ratiosRequest
	if r.ContentLength != 0 {
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()
	n, err := s.svc.RecalculateRatios(ctx, req.Prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	st, err := s.svc.Stats(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
