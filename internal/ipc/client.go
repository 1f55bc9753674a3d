package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"vidslides/internal/api"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req any, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Submit enqueues a job. Validation and duplicate errors are returned as
// *api.ServiceError.
func (c *Client) Submit(req api.CreateJobRequest) (*api.Job, error) {
	var resp SubmitResponse
	if err := c.call("Submit", SubmitRequest{Job: req}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// List returns recent jobs, optionally filtered by status.
func (c *Client) List(limit int, status string) ([]api.Job, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{Limit: limit, Status: status}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Show returns a single job.
func (c *Client) Show(jobID string) (*api.Job, error) {
	var resp ShowResponse
	if err := c.call("Show", ShowRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Reprocess resets a finished job to pending.
func (c *Client) Reprocess(jobID string) (*api.Job, error) {
	var resp ReprocessResponse
	if err := c.call("Reprocess", ReprocessRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Drain starts the next pending job if the worker is idle.
func (c *Client) Drain() (*api.DrainResponse, error) {
	var resp DrainResponse
	if err := c.call("Drain", DrainRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Library pages through completed decks.
func (c *Client) Library(page, pageSize int, search string) (*api.LibraryPage, error) {
	var resp LibraryResponse
	req := LibraryRequest{Page: page, PageSize: pageSize, Search: search}
	if err := c.call("Library", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Page, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*api.DaemonStatus, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Status, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
