// Package admin 提供调度器的 HTTP 管理接口.
//
// 路由:
//
//	GET    /healthz             调度循环状态
//	GET    /jobs                任务列表，支持 ?status= 和 ?tag= 过滤
//	GET    /jobs/{id}           任务详情
//	POST   /jobs/{id}/run       立即执行（同步，?async=true 时立即返回 202）
//	POST   /jobs/{id}/pause     暂停
//	POST   /jobs/{id}/resume    恢复
//	POST   /jobs/{id}/cancel    取消
//	DELETE /jobs/{id}           注销
//
// 所有响应使用 response 包的统一格式.
package admin

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/metrics"
	"github.com/Tsukikage7/jobkit/recovery"
	"github.com/Tsukikage7/jobkit/scheduler"
	"github.com/Tsukikage7/jobkit/transport/response"
)

// Health 健康检查响应数据.
type Health struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Jobs    int    `json:"jobs"`
}

// Handler 管理接口处理器.
type Handler struct {
	scheduler scheduler.Scheduler
	opts      *options
	mux       *http.ServeMux
	handler   http.Handler
}

// New 创建管理接口处理器.
func New(s scheduler.Scheduler, opts ...Option) *Handler {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}

	h := &Handler{
		scheduler: s,
		opts:      o,
		mux:       http.NewServeMux(),
	}
	h.routes()

	var handler http.Handler = h.mux
	handler = h.recover(handler)
	if o.collector != nil {
		handler = metrics.HTTPMiddleware(o.collector)(handler)
	}
	h.handler = handler
	return h
}

// ServeHTTP 实现 http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Handle 在管理接口上挂载额外的路由，例如 /metrics.
func (h *Handler) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

func (h *Handler) routes() {
	p := h.opts.prefix
	h.mux.HandleFunc("GET "+p+"/healthz", h.health)
	h.mux.HandleFunc("GET "+p+"/jobs", h.list)
	h.mux.HandleFunc("GET "+p+"/jobs/{id}", h.get)
	h.mux.HandleFunc("DELETE "+p+"/jobs/{id}", h.remove)
	h.mux.HandleFunc("POST "+p+"/jobs/{id}/run", h.run)
	h.mux.HandleFunc("POST "+p+"/jobs/{id}/pause", h.transition(h.scheduler.Pause, "暂停"))
	h.mux.HandleFunc("POST "+p+"/jobs/{id}/resume", h.transition(h.scheduler.Resume, "恢复"))
	h.mux.HandleFunc("POST "+p+"/jobs/{id}/cancel", h.transition(h.scheduler.Cancel, "取消"))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	data := Health{
		Status:  "up",
		Running: h.scheduler.Running(),
		Jobs:    len(h.scheduler.ListAll()),
	}
	if !data.Running {
		data.Status = "down"
		h.logWrite(response.Respond(w, response.CodeUnavailable, data))
		return
	}
	h.logWrite(response.Success(w, data))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	tag := r.URL.Query().Get("tag")

	jobs := h.scheduler.ListAll()
	if status != "" || tag != "" {
		jobs = slices.DeleteFunc(jobs, func(info scheduler.JobInfo) bool {
			if status != "" && info.Status.String() != status {
				return true
			}
			return tag != "" && !slices.Contains(info.Tags, tag)
		})
	}
	h.logWrite(response.Success(w, response.NewList(jobs)))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	info, ok := h.scheduler.GetInfo(r.PathValue("id"))
	if !ok {
		h.logWrite(response.Fail(w, response.CodeJobNotFound))
		return
	}
	h.logWrite(response.Success(w, info))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.scheduler.Remove(id) {
		h.logWrite(response.Fail(w, response.CodeJobNotFound))
		return
	}
	h.opts.logger.With(logger.String("job_id", id)).Info("[Admin] 任务已注销")
	h.logWrite(response.Success(w, map[string]string{"id": id}))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.scheduler.GetInfo(id); !ok {
		h.logWrite(response.Fail(w, response.CodeJobNotFound))
		return
	}

	if r.URL.Query().Get("async") == "true" {
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := h.scheduler.RunNow(ctx, id); err != nil {
				h.opts.logger.With(logger.String("job_id", id), logger.Err(err)).Warn("[Admin] 异步执行失败")
			}
		}()
		h.logWrite(response.JSON(w, http.StatusAccepted, response.Body[map[string]string]{Message: "已提交", Data: map[string]string{"id": id}}))
		return
	}

	if err := h.scheduler.RunNow(r.Context(), id); err != nil {
		h.logWrite(response.Fail(w, mapError(err)))
		return
	}
	info, _ := h.scheduler.GetInfo(id)
	h.logWrite(response.Success(w, info))
}

// transition 包装 Pause/Resume/Cancel，操作被拒绝时区分任务不存在和状态不允许.
func (h *Handler) transition(op func(id string) bool, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !op(id) {
			if _, ok := h.scheduler.GetInfo(id); !ok {
				h.logWrite(response.Fail(w, response.CodeJobNotFound))
				return
			}
			h.logWrite(response.Fail(w, response.CodeJobStateInvalid))
			return
		}

		h.opts.logger.With(logger.String("job_id", id)).Infof("[Admin] 任务已%s", action)
		info, _ := h.scheduler.GetInfo(id)
		h.logWrite(response.Success(w, info))
	}
}

// recover 把处理器中的 panic 转换为 500 响应.
func (h *Handler) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := recovery.Run(func() { next.ServeHTTP(w, r) })
		if pe, ok := recovery.AsPanic(err); ok {
			h.opts.logger.With(
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("stack", string(pe.Stack)),
			).Errorf("[Admin] 请求处理 panic: %v", pe.Value)
			h.logWrite(response.Fail(w, response.CodeInternal))
		}
	})
}

func (h *Handler) logWrite(err error) {
	if err != nil {
		h.opts.logger.Debugf("[Admin] 写入响应失败: %v", err)
	}
}

// mapError 将调度器错误转换为业务错误.
func mapError(err error) error {
	var (
		execErr *scheduler.ExecutionError
		skipErr *scheduler.SkipError
	)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		return response.CodeJobNotFound
	case errors.Is(err, scheduler.ErrJobCancelled):
		return response.CodeJobCancelled
	case errors.Is(err, scheduler.ErrJobRunning):
		return response.CodeJobRunning
	case errors.Is(err, scheduler.ErrSchedulerClosed):
		return response.CodeUnavailable.Wrap(err)
	case errors.As(err, &skipErr):
		return response.CodeJobSkipped.Wrap(skipErr.Err)
	case errors.As(err, &execErr):
		return response.CodeJobFailed.Wrap(execErr.Err)
	case errors.Is(err, context.DeadlineExceeded):
		return response.CodeTimeout.Wrap(err)
	case errors.Is(err, context.Canceled):
		return response.CodeCanceled.Wrap(err)
	default:
		return err
	}
}
