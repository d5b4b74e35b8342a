package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventscore/internal/adapters/http/api"
	"github.com/okian/eventscore/internal/adapters/mq/worker"
	service "github.com/okian/eventscore/internal/app"
	"github.com/okian/eventscore/internal/batch"
	"github.com/okian/eventscore/internal/client"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
	"github.com/okian/eventscore/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	m.Run()
}

func aseanBatch(key string) *batch.Batch {
	return &batch.Batch{
		IdempotencyKey: key,
		Events: []model.EventRecord{{
			Name: "ASEAN Law Forum",
			Editions: []model.EditionRecord{{Fields: model.Row{
				"year": 2022, "city": "Hanoi", "country": "Vietnam", "attendance": 400,
			}}},
		}},
	}
}

func TestClientAgainstService(t *testing.T) {
	Convey("Given a client for a running API", t, func() {
		svc := service.New(service.WithPoolOptions(worker.WithInterBatchPause(0)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		mux := http.NewServeMux()
		api.NewServer(svc, 100).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := client.New(srv.URL+"/", client.WithTimeout(5*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When a batch is submitted and awaited", func() {
			ack, err := c.Submit(ctx, aseanBatch("client-1"))
			So(err, ShouldBeNil)
			So(ack.Status, ShouldEqual, "accepted")
			So(ack.Events, ShouldEqual, 1)

			view, err := c.Wait(ctx, ack.RunID, 5*time.Millisecond)
			So(err, ShouldBeNil)

			Convey("Then the run completes with a report", func() {
				So(view.Status, ShouldEqual, types.RunCompleted)
				So(view.Counts.Completed, ShouldEqual, 1)

				rep, err := c.Report(ctx, ack.RunID)
				So(err, ShouldBeNil)
				So(rep.Ranked, ShouldHaveLength, 1)
				So(rep.Ranked[0].TotalScore, ShouldEqual, 75)
			})

			Convey("Then resubmitting the key is reported as a duplicate", func() {
				again, err := c.Submit(ctx, aseanBatch("client-1"))
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.RunID, ShouldEqual, ack.RunID)
			})
		})

		Convey("When an unknown run is requested", func() {
			_, _, err := c.Run(ctx, "missing")

			Convey("Then the API error is surfaced", func() {
				So(errors.Is(err, client.ErrStatus), ShouldBeTrue)
				var se *client.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Code, ShouldEqual, http.StatusNotFound)
				So(se.Kind, ShouldEqual, "not_found")
			})
		})

		Convey("When an empty batch is submitted", func() {
			_, err := c.Submit(ctx, &batch.Batch{})
			var se *client.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestClientWaitHonoursRetryAfter(t *testing.T) {
	Convey("Given a server that signals a cool-down once", t, func() {
		var polls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if polls.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				_, _ = w.Write([]byte(`{"id":"r1","status":"running"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"r1","status":"completed","finished_at":"2024-01-01T00:00:00Z"}`))
		}))
		defer srv.Close()

		c := client.New(srv.URL)

		Convey("Then the first poll reports the cool-down", func() {
			_, retryAfter, err := c.Run(context.Background(), "r1")
			So(err, ShouldBeNil)
			So(retryAfter, ShouldEqual, time.Second)
		})

		Convey("Then Wait returns once the run finishes", func() {
			start := time.Now()
			v, err := c.Wait(context.Background(), "r1", time.Millisecond)
			So(err, ShouldBeNil)
			So(v.Status, ShouldEqual, types.RunCompleted)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, time.Second)
		})

		Convey("Then Wait gives up when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_, err := c.Wait(ctx, "r1", time.Millisecond)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}
