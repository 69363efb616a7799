// Package api serves the label operations over HTTP for the web dashboard.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"s3labels/api/response"
	"s3labels/browse"
	"s3labels/config"
	"s3labels/report"
	"s3labels/service"
)

// Provider opens a label service for the credentials a request names. Empty
// values mean the server defaults.
type Provider func(ctx context.Context, profile, region string) (*service.Service, error)

// Handler holds HTTP handlers for the label endpoints.
type Handler struct {
	provide Provider
	bucket  string
	now     func() time.Time
}

// NewHandler creates a Handler; bucket is used when a request names none.
func NewHandler(provide Provider, bucket string) *Handler {
	if bucket == "" {
		bucket = report.DefaultBucket
	}
	return &Handler{provide: provide, bucket: bucket, now: time.Now}
}

// ReportPair is the label summary for a day and the next working day.
type ReportPair struct {
	TodayReport   string `json:"todayReport"`
	NextDayReport string `json:"nextDayReport"`
}

// BucketList wraps the bucket summary rows.
type BucketList struct {
	Buckets []service.BucketSummary `json:"buckets"`
}

func (h *Handler) service(w http.ResponseWriter, r *http.Request) (*service.Service, bool) {
	q := r.URL.Query()
	svc, err := h.provide(r.Context(), q.Get("profile"), q.Get("region"))
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	return svc, true
}

func (h *Handler) bucketParam(r *http.Request) string {
	if b := r.URL.Query().Get("bucket"); b != "" {
		return b
	}
	return h.bucket
}

// List handles GET /api/s3-downloader/list?bucket=&prefix=&order=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := browse.ParseOrder(q.Get("order"))
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	listing, err := svc.List(r.Context(), h.bucketParam(r), q.Get("prefix"), order)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, listing)
}

// Search handles GET /api/s3-downloader/search?bucket=&prefix=&term=
// A miss is a successful response with no data.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("term") == "" {
		response.BadRequest(w, "term is required")
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	res, err := svc.SearchNewest(r.Context(), h.bucketParam(r), q.Get("prefix"), q.Get("term"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if res == nil {
		response.OK(w, nil)
		return
	}
	response.OK(w, res)
}

// Image handles GET /api/s3-downloader/image?bucket=&key=
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	img, err := svc.GetImage(r.Context(), h.bucketParam(r), key)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, img)
}

// BucketSummary handles GET /api/s3-summary
func (h *Handler) BucketSummary(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	rows, err := svc.Summary(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, BucketList{Buckets: rows})
}

// LabelSummary handles GET /api/label-summary?date=
// It renders the report for date (default today) and the next working day.
func (h *Handler) LabelSummary(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := report.ParseDate(d)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		day = parsed
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	bucket := h.bucketParam(r)

	today, err := svc.Report(r.Context(), bucket, day)
	if err != nil {
		h.fail(w, err)
		return
	}
	next, err := svc.Report(r.Context(), bucket, report.NextWorkingDay(day))
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, ReportPair{TodayReport: today.Text(), NextDayReport: next.Text()})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	}
	response.Error(w, status, service.HumanError(err))
}

func statusFor(err error) int {
	if errors.Is(err, config.ErrProfileNotAllowed) {
		return http.StatusForbidden
	}
	switch service.Kind(err) {
	case service.KindConnection, service.KindList:
		return http.StatusBadGateway
	case service.KindDecode:
		return http.StatusUnprocessableEntity
	case service.KindValue:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
