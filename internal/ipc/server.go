package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"vidslides/internal/api"
	"vidslides/internal/daemon"
	"vidslides/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, jobs: d.Jobs(), logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Open client
// connections finish their in-flight call and are then dropped.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	jobs   *api.JobService
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.jobs.CreateJob(s.ctx, req.Job)
	if err != nil {
		return resp.fail(err)
	}
	resp.Job = *job
	s.logger.Info("job submitted via IPC",
		logging.String(logging.FieldEventType, "ipc_submit"),
		logging.String(logging.FieldJobID, job.JobID),
	)
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	list, err := s.jobs.ListJobs(s.ctx, req.Limit, req.Status)
	if err != nil {
		return resp.fail(err)
	}
	resp.Items = list.Items
	return nil
}

func (s *service) Show(req ShowRequest, resp *ShowResponse) error {
	job, err := s.jobs.GetJob(s.ctx, req.JobID)
	if err != nil {
		return resp.fail(err)
	}
	resp.Job = *job
	return nil
}

func (s *service) Reprocess(req ReprocessRequest, resp *ReprocessResponse) error {
	job, err := s.jobs.Reprocess(s.ctx, req.JobID)
	if err != nil {
		return resp.fail(err)
	}
	resp.Job = *job
	s.logger.Info("job reset via IPC",
		logging.String(logging.FieldEventType, "ipc_reprocess"),
		logging.String(logging.FieldJobID, job.JobID),
	)
	return nil
}

func (s *service) Drain(_ DrainRequest, resp *DrainResponse) error {
	result, err := s.jobs.DrainQueue(s.ctx)
	if err != nil {
		return resp.fail(err)
	}
	resp.Result = *result
	return nil
}

func (s *service) Library(req LibraryRequest, resp *LibraryResponse) error {
	page, err := s.jobs.BrowseCompleted(s.ctx, req.Page, req.PageSize, req.Search)
	if err != nil {
		return resp.fail(err)
	}
	resp.Page = *page
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		resp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	return nil
}
