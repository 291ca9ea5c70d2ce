package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/metrics"
	"github.com/Tsukikage7/jobkit/scheduler"
	"github.com/Tsukikage7/jobkit/transport/response"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// AdminTestSuite 管理接口测试套件.
type AdminTestSuite struct {
	suite.Suite
	sched   scheduler.Scheduler
	handler *Handler
	logs    *observer.ObservedLogs
	runs    atomic.Int32
	fail    atomic.Bool
	okID    string
	otherID string
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}

func (s *AdminTestSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	s.runs.Store(0)
	s.fail.Store(false)

	s.sched = scheduler.MustNew(scheduler.WithTickInterval(time.Hour))

	hourly, err := scheduler.Every(time.Hour)
	s.Require().NoError(err)

	s.okID, err = s.sched.Register("report", hourly, func(context.Context) error {
		s.runs.Add(1)
		if s.fail.Load() {
			return errors.New("exit status 2")
		}
		return nil
	}, scheduler.WithTags("daily"))
	s.Require().NoError(err)

	s.otherID, err = s.sched.Register("cleanup", hourly, func(context.Context) error { return nil })
	s.Require().NoError(err)

	s.handler = New(s.sched, WithLogger(logger.NewWithCore(core)))
}

func (s *AdminTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.sched.Shutdown(ctx)
}

func (s *AdminTestSuite) do(method, target string) (int, envelope) {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *AdminTestSuite) info(env envelope) scheduler.JobInfo {
	var info scheduler.JobInfo
	s.Require().NoError(json.Unmarshal(env.Data, &info))
	return info
}

func (s *AdminTestSuite) TestHealth() {
	code, env := s.do(http.MethodGet, "/healthz")
	s.Equal(http.StatusServiceUnavailable, code)
	s.Equal(response.CodeUnavailable.Num, env.Code)
	s.JSONEq(`{"status":"down","running":false,"jobs":2}`, string(env.Data))

	s.Require().NoError(s.sched.Start())
	code, env = s.do(http.MethodGet, "/healthz")
	s.Equal(http.StatusOK, code)
	s.JSONEq(`{"status":"up","running":true,"jobs":2}`, string(env.Data))
}

func (s *AdminTestSuite) TestList() {
	code, env := s.do(http.MethodGet, "/jobs")
	s.Equal(http.StatusOK, code)

	var list response.List[scheduler.JobInfo]
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Equal(2, list.Total)
	s.Equal("report", list.Items[0].Name)
	s.Equal("cleanup", list.Items[1].Name)

	_, env = s.do(http.MethodGet, "/jobs?tag=daily")
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Equal(1, list.Total)
	s.Equal(s.okID, list.Items[0].ID)

	s.True(s.sched.Pause(s.otherID))
	_, env = s.do(http.MethodGet, "/jobs?status=paused")
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Equal(1, list.Total)
	s.Equal(s.otherID, list.Items[0].ID)

	_, env = s.do(http.MethodGet, "/jobs?status=cancelled")
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Zero(list.Total)
	s.NotNil(list.Items)
}

func (s *AdminTestSuite) TestGet() {
	code, env := s.do(http.MethodGet, "/jobs/"+s.okID)
	s.Equal(http.StatusOK, code)
	s.Equal("report", s.info(env).Name)

	code, env = s.do(http.MethodGet, "/jobs/missing")
	s.Equal(http.StatusNotFound, code)
	s.Equal(response.CodeJobNotFound.Num, env.Code)
}

func (s *AdminTestSuite) TestRun() {
	code, env := s.do(http.MethodPost, "/jobs/"+s.okID+"/run")
	s.Equal(http.StatusOK, code)
	s.Equal(int64(1), s.info(env).ExecutionCount)
	s.Equal(int32(1), s.runs.Load())

	s.fail.Store(true)
	code, env = s.do(http.MethodPost, "/jobs/"+s.okID+"/run")
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal(response.CodeJobFailed.Num, env.Code)
	s.Contains(env.Message, "exit status 2")

	code, env = s.do(http.MethodPost, "/jobs/missing/run")
	s.Equal(http.StatusNotFound, code)
	s.Equal(response.CodeJobNotFound.Num, env.Code)

	s.True(s.sched.Cancel(s.okID))
	code, env = s.do(http.MethodPost, "/jobs/"+s.okID+"/run")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobCancelled.Num, env.Code)
}

func (s *AdminTestSuite) TestRunVetoedByHook() {
	sched := scheduler.MustNew(
		scheduler.WithTickInterval(time.Hour),
		scheduler.WithHooks(scheduler.NewHooks().
			BeforeJob(func(context.Context, *scheduler.JobContext) error {
				return errors.New("maintenance window")
			}).
			Build()),
	)
	defer sched.Shutdown(context.Background())

	hourly, _ := scheduler.Every(time.Hour)
	var runs atomic.Int32
	id, err := sched.Register("guarded", hourly, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Require().NoError(err)
	s.handler = New(sched, WithLogger(logger.NewNop()))

	// 被钩子拒绝属于业务结果，不是服务端错误
	code, env := s.do(http.MethodPost, "/jobs/"+id+"/run")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobSkipped.Num, env.Code)
	s.Contains(env.Message, "maintenance window")
	s.Zero(runs.Load())

	info, ok := sched.GetInfo(id)
	s.Require().True(ok)
	s.Equal(int64(1), info.SkipCount)
}

func (s *AdminTestSuite) TestRunAsync() {
	code, env := s.do(http.MethodPost, "/jobs/"+s.okID+"/run?async=true")
	s.Equal(http.StatusAccepted, code)
	s.Equal(response.CodeOK.Num, env.Code)
	s.Eventually(func() bool { return s.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func (s *AdminTestSuite) TestRunWhileRunning() {
	release := make(chan struct{})
	started := make(chan struct{})
	hourly, _ := scheduler.Every(time.Hour)
	id, err := s.sched.Register("slow", hourly, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	s.Require().NoError(err)

	go func() { _ = s.sched.RunNow(context.Background(), id) }()
	<-started

	code, env := s.do(http.MethodPost, "/jobs/"+id+"/run")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobRunning.Num, env.Code)

	code, env = s.do(http.MethodPost, "/jobs/"+id+"/pause")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobStateInvalid.Num, env.Code)
	close(release)
}

func (s *AdminTestSuite) TestTransitions() {
	code, env := s.do(http.MethodPost, "/jobs/"+s.okID+"/pause")
	s.Equal(http.StatusOK, code)
	s.Equal(scheduler.StatusPaused, s.info(env).Status)

	code, env = s.do(http.MethodPost, "/jobs/"+s.okID+"/pause")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobStateInvalid.Num, env.Code)

	code, _ = s.do(http.MethodPost, "/jobs/"+s.okID+"/resume")
	s.Equal(http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/jobs/"+s.okID+"/cancel")
	s.Equal(http.StatusOK, code)
	s.Equal(scheduler.StatusCancelled, s.info(env).Status)

	code, env = s.do(http.MethodPost, "/jobs/"+s.okID+"/resume")
	s.Equal(http.StatusConflict, code)
	s.Equal(response.CodeJobStateInvalid.Num, env.Code)

	code, env = s.do(http.MethodPost, "/jobs/missing/cancel")
	s.Equal(http.StatusNotFound, code)
	s.Equal(response.CodeJobNotFound.Num, env.Code)

	s.NotEmpty(s.logs.FilterMessageSnippet("任务已暂停").All())
	s.NotEmpty(s.logs.FilterMessageSnippet("任务已取消").All())
}

func (s *AdminTestSuite) TestRemove() {
	code, _ := s.do(http.MethodDelete, "/jobs/"+s.otherID)
	s.Equal(http.StatusOK, code)
	_, ok := s.sched.GetInfo(s.otherID)
	s.False(ok)

	code, env := s.do(http.MethodDelete, "/jobs/"+s.otherID)
	s.Equal(http.StatusNotFound, code)
	s.Equal(response.CodeJobNotFound.Num, env.Code)
}

func (s *AdminTestSuite) TestMethodNotAllowed() {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+s.okID+"/run", nil))
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *AdminTestSuite) TestPanicRecovered() {
	s.handler.Handle("GET /boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	code, env := s.do(http.MethodGet, "/boom")
	s.Equal(http.StatusInternalServerError, code)
	s.Equal(response.CodeInternal.Num, env.Code)
	s.NotEmpty(s.logs.FilterMessageSnippet("kaboom").All())
}

func (s *AdminTestSuite) TestPrefixAndMetrics() {
	collector, err := metrics.NewMetrics(&metrics.Config{Enabled: true, Path: "/metrics", Namespace: "admin_test"})
	s.Require().NoError(err)

	h := New(s.sched, WithPrefix("/admin"), WithMetrics(collector))
	h.Handle("GET /metrics", collector.GetHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs/"+s.okID, nil))
	s.Equal(http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	s.True(strings.Contains(string(body), `route="/admin/jobs/{id}"`), string(body))
}
