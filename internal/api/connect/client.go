package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client is a typed client for PlaybackService.
type Client struct {
	startPlaying  *connect.Client[StartPlayingRequest, StartPlayingResponse]
	stopPlaying   *connect.Client[StopPlayingRequest, CommandResponse]
	pauseOrResume *connect.Client[PauseOrResumeRequest, CommandResponse]
	getState      *connect.Client[GetStateRequest, State]
	watchState    *connect.Client[WatchStateRequest, State]
	getHistory    *connect.Client[GetHistoryRequest, History]
}

// NewClient creates a client for the server at baseURL.
// token is sent with every unary call when non-empty.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		WithJSON(),
		connect.WithInterceptors(NewClientTokenInterceptor(token)),
	}, opts...)

	return &Client{
		startPlaying:  connect.NewClient[StartPlayingRequest, StartPlayingResponse](httpClient, baseURL+StartPlayingProcedure, opts...),
		stopPlaying:   connect.NewClient[StopPlayingRequest, CommandResponse](httpClient, baseURL+StopPlayingProcedure, opts...),
		pauseOrResume: connect.NewClient[PauseOrResumeRequest, CommandResponse](httpClient, baseURL+PauseOrResumeProcedure, opts...),
		getState:      connect.NewClient[GetStateRequest, State](httpClient, baseURL+GetStateProcedure, opts...),
		watchState:    connect.NewClient[WatchStateRequest, State](httpClient, baseURL+WatchStateProcedure, opts...),
		getHistory:    connect.NewClient[GetHistoryRequest, History](httpClient, baseURL+GetHistoryProcedure, opts...),
	}
}

// StartPlaying calls PlaybackService.StartPlaying.
func (c *Client) StartPlaying(ctx context.Context, item *Item) (*StartPlayingResponse, error) {
	resp, err := c.startPlaying.CallUnary(ctx, connect.NewRequest(&StartPlayingRequest{Item: item}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// StopPlaying calls PlaybackService.StopPlaying.
func (c *Client) StopPlaying(ctx context.Context) (*CommandResponse, error) {
	resp, err := c.stopPlaying.CallUnary(ctx, connect.NewRequest(&StopPlayingRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// PauseOrResume calls PlaybackService.PauseOrResume.
func (c *Client) PauseOrResume(ctx context.Context) (*CommandResponse, error) {
	resp, err := c.pauseOrResume.CallUnary(ctx, connect.NewRequest(&PauseOrResumeRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetState calls PlaybackService.GetState.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	resp, err := c.getState.CallUnary(ctx, connect.NewRequest(&GetStateRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// WatchState opens a state stream. The caller must Close it.
func (c *Client) WatchState(ctx context.Context) (*connect.ServerStreamForClient[State], error) {
	return c.watchState.CallServerStream(ctx, connect.NewRequest(&WatchStateRequest{}))
}

// GetHistory calls PlaybackService.GetHistory.
func (c *Client) GetHistory(ctx context.Context) (*History, error) {
	resp, err := c.getHistory.CallUnary(ctx, connect.NewRequest(&GetHistoryRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
