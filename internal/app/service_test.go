package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	service "github.com/okian/eventscore/internal/app"
	eventqueue "github.com/okian/eventscore/internal/adapters/mq/queue"
	"github.com/okian/eventscore/internal/adapters/mq/worker"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
	"github.com/okian/eventscore/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	goleak.VerifyTestMain(m)
}

func aseanLawForum() model.EventRecord {
	return model.EventRecord{
		Name: "ASEAN Law Forum",
		Editions: []model.EditionRecord{
			{Fields: model.Row{"year": 2022, "city": "Hanoi", "country": "Vietnam", "attendance": 400}},
		},
	}
}

func named(names ...string) []model.EventRecord {
	out := make([]model.EventRecord, len(names))
	for i, n := range names {
		out[i] = model.EventRecord{Name: n}
	}
	return out
}

// gate blocks every task until opened.
type gate struct {
	open    chan struct{}
	started atomic.Int32
}

func newGate() *gate { return &gate{open: make(chan struct{})} }

func (g *gate) task(ctx context.Context, ev model.EventRecord, _ []model.ContactRecord, _ model.ScoringCriteria) (model.ScoredEvent, error) {
	g.started.Add(1)
	<-g.open
	return model.ScoredEvent{EventID: ev.ID, CompanyName: ev.Name, TotalScore: 10, Problems: []string{}}, nil
}

func startService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithPoolOptions(
			worker.WithInterBatchPause(0),
			worker.WithRateLimitBackoff(time.Millisecond, 5*time.Millisecond),
		),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func stop(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = svc.Stop(ctx)
}

func waitFor(svc *service.Service, id string, cond func(service.RunView) bool) service.RunView {
	deadline := time.Now().Add(5 * time.Second)
	for {
		v, err := svc.Run(context.Background(), id)
		if err == nil && cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			panic(fmt.Sprintf("run %s did not reach the expected state: %+v", id, v))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForQueueLength(svc *service.Service, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for svc.GetStats(context.Background())["queueLength"] != n {
		if time.Now().After(deadline) {
			panic("queue did not drain")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func finished(v service.RunView) bool {
	return v.Status.Finished()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then submissions and reads are refused", func() {
			_, err := svc.Submit(context.Background(), service.SubmitRequest{Events: named("A")})
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.TopN(context.Background(), 5)
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats(context.Background())["started"], ShouldBeFalse)
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		svc := startService(service.WithRunWorkers(3))
		Reset(func() { stop(svc) })

		Convey("Then stats report it running", func() {
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldBeTrue)
			So(stats["runWorkers"], ShouldEqual, 3)
			So(stats["queueLength"], ShouldEqual, 0)
		})

		Convey("When stopped", func() {
			stop(svc)

			Convey("Then it refuses new runs", func() {
				So(svc.GetStats(context.Background())["started"], ShouldBeFalse)
				_, err := svc.Submit(context.Background(), service.SubmitRequest{Events: named("A")})
				So(err, ShouldEqual, service.ErrNotStarted)
			})

			Convey("Then reads of the closed store are refused", func() {
				_, err := svc.TopN(context.Background(), 5)
				So(err, ShouldEqual, service.ErrNotStarted)
				_, err = svc.Lookup(context.Background(), "A")
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a service with the real scorer", t, func() {
		svc := startService()
		defer stop(svc)
		ctx := context.Background()

		Convey("When a run is submitted", func() {
			res, err := svc.Submit(ctx, service.SubmitRequest{
				Events: []model.EventRecord{aseanLawForum(), {Name: "Quiet Meetup"}, {}},
			})
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeFalse)
			So(res.Events, ShouldEqual, 3)

			v := waitFor(svc, res.RunID, finished)

			Convey("Then every event settles and the report is final", func() {
				So(v.Status, ShouldEqual, types.RunCompleted)
				So(v.Counts, ShouldResemble, service.Counts{Total: 3, Completed: 2, Failed: 1})
				So(v.Report, ShouldNotBeNil)
				So(v.Report.Scored, ShouldEqual, 2)
				So(v.Report.Skipped, ShouldEqual, 1)
				So(v.Report.Ranked[0].CompanyName, ShouldEqual, "ASEAN Law Forum")
				So(v.StartedAt, ShouldNotBeNil)
				So(v.FinishedAt, ShouldNotBeNil)
			})

			Convey("And results reach the leaderboard", func() {
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].CompanyName, ShouldEqual, "ASEAN Law Forum")
				So(top[0].TotalScore, ShouldEqual, 75)

				got, err := svc.Lookup(ctx, "ASEAN Law Forum")
				So(err, ShouldBeNil)
				So(got.VietnamEventCount, ShouldEqual, 1)
			})
		})

		Convey("When a submission is invalid", func() {
			_, err := svc.Submit(ctx, service.SubmitRequest{})
			So(err, ShouldEqual, service.ErrEmptyRun)
			So(service.IsClientError(err), ShouldBeTrue)

			_, err = svc.Submit(ctx, service.SubmitRequest{Events: []model.EventRecord{{ID: "x", Name: "A"}, {ID: " x ", Name: "B"}}})
			So(errors.Is(err, service.ErrDuplicateEventID), ShouldBeTrue)

			_, err = svc.Run(ctx, "nope")
			So(errors.Is(err, service.ErrRunNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a service with a small event limit", t, func() {
		svc := startService(service.WithMaxEventsPerRun(2))
		defer stop(svc)

		_, err := svc.Submit(context.Background(), service.SubmitRequest{Events: named("A", "B", "C")})
		So(errors.Is(err, service.ErrTooManyEvents), ShouldBeTrue)
	})
}

func TestService_Idempotency(t *testing.T) {
	Convey("Given a submission with an idempotency key", t, func() {
		svc := startService()
		defer stop(svc)
		ctx := context.Background()
		req := service.SubmitRequest{IdempotencyKey: "batch-42", Events: named("A", "B")}

		first, err := svc.Submit(ctx, req)
		So(err, ShouldBeNil)

		Convey("Then a retry maps to the original run", func() {
			again, err := svc.Submit(ctx, req)
			So(err, ShouldBeNil)
			So(again.Duplicate, ShouldBeTrue)
			So(again.RunID, ShouldEqual, first.RunID)
			waitFor(svc, first.RunID, finished)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one run worker blocked on a run and a queue of one", t, func() {
		g := newGate()
		svc := startService(service.WithRunWorkers(1), service.WithQueueSize(1), service.WithTask(g.task))
		defer stop(svc)
		defer close(g.open)
		ctx := context.Background()

		running, err := svc.Submit(ctx, service.SubmitRequest{Events: named("A")})
		So(err, ShouldBeNil)
		waitFor(svc, running.RunID, func(v service.RunView) bool { return v.Status == types.RunRunning })
		// B is taken off the buffer by the blocked dequeuer, C fills it.
		_, err = svc.Submit(ctx, service.SubmitRequest{Events: named("B")})
		So(err, ShouldBeNil)
		waitForQueueLength(svc, 0)
		_, err = svc.Submit(ctx, service.SubmitRequest{Events: named("C")})
		So(err, ShouldBeNil)

		Convey("Then a further run is rejected and its key released", func() {
			req := service.SubmitRequest{IdempotencyKey: "k", Events: named("D")}
			_, err := svc.Submit(ctx, req)
			So(err, ShouldEqual, eventqueue.ErrQueueFull)
			_, err = svc.Submit(ctx, req)
			So(err, ShouldEqual, eventqueue.ErrQueueFull)
		})
	})
}

func TestService_Cancel(t *testing.T) {
	Convey("Given a running run of three single-event batches and a queued run", t, func() {
		g := newGate()
		svc := startService(
			service.WithRunWorkers(1),
			service.WithTask(g.task),
			service.WithPoolOptions(worker.WithPoolWidth(1)),
		)
		defer stop(svc)
		ctx := context.Background()

		running, err := svc.Submit(ctx, service.SubmitRequest{Events: named("A", "B", "C")})
		So(err, ShouldBeNil)
		queued, err := svc.Submit(ctx, service.SubmitRequest{Events: named("D")})
		So(err, ShouldBeNil)
		waitFor(svc, running.RunID, func(v service.RunView) bool { return v.Counts.Analyzing == 1 })

		Convey("When both are cancelled", func() {
			So(svc.Cancel(ctx, queued.RunID), ShouldBeNil)
			So(svc.Cancel(ctx, running.RunID), ShouldBeNil)
			close(g.open)

			Convey("Then the queued run never starts", func() {
				v := waitFor(svc, queued.RunID, finished)
				So(v.Status, ShouldEqual, types.RunCancelled)
				So(v.Events[0].Reason, ShouldEqual, worker.ErrInterrupted.Error())
			})

			Convey("And the running run keeps its settled batch only", func() {
				v := waitFor(svc, running.RunID, finished)
				So(v.Status, ShouldEqual, types.RunCancelled)
				So(v.Counts, ShouldResemble, service.Counts{Total: 3, Completed: 1, Failed: 2})
				So(v.Error, ShouldNotBeEmpty)
				So(g.started.Load(), ShouldEqual, 1)

				So(errors.Is(svc.Cancel(ctx, running.RunID), service.ErrRunFinished), ShouldBeTrue)
			})
		})
	})
}

func TestService_PriorsAndRateLimits(t *testing.T) {
	Convey("Given a task that is rate limited once and then scores zero", t, func() {
		var calls atomic.Int32
		task := func(_ context.Context, ev model.EventRecord, _ []model.ContactRecord, _ model.ScoringCriteria) (model.ScoredEvent, error) {
			switch calls.Add(1) {
			case 1:
				return model.ScoredEvent{EventID: ev.ID, CompanyName: ev.Name, TotalScore: 60, Problems: []string{}}, nil
			case 2:
				return model.ScoredEvent{}, &worker.RateLimitError{RetryAfter: 2 * time.Second}
			default:
				return model.ScoredEvent{EventID: ev.ID, CompanyName: ev.Name, Problems: []string{}}, nil
			}
		}
		svc := startService(service.WithRunWorkers(1), service.WithTask(task))
		defer stop(svc)
		ctx := context.Background()

		first, err := svc.Submit(ctx, service.SubmitRequest{Events: named("Gala")})
		So(err, ShouldBeNil)
		waitFor(svc, first.RunID, finished)

		Convey("When the same event is rescored", func() {
			second, err := svc.Submit(ctx, service.SubmitRequest{Events: named("Gala")})
			So(err, ShouldBeNil)
			v := waitFor(svc, second.RunID, finished)

			Convey("Then the rate-limit signal is surfaced", func() {
				So(v.RateLimitHits, ShouldEqual, 1)
				So(v.RateLimit, ShouldNotBeNil)
				So(v.RateLimit.RetryAfterSeconds, ShouldEqual, 2)
			})

			Convey("And the positive prior survives the zero score", func() {
				So(v.Report.Ranked[0].TotalScore, ShouldEqual, 60)
				got, err := svc.Lookup(ctx, "Gala")
				So(err, ShouldBeNil)
				So(got.TotalScore, ShouldEqual, 60)
			})
		})
	})
}
