package connect

import (
	"net/http"

	"connectrpc.com/connect"
)

// NewPlaybackServiceHandler builds an HTTP handler serving every procedure of
// svc. The returned path is the mount prefix.
func NewPlaybackServiceHandler(svc *PlaybackService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(StartPlayingProcedure, connect.NewUnaryHandler(StartPlayingProcedure, svc.StartPlaying, opts...))
	mux.Handle(StopPlayingProcedure, connect.NewUnaryHandler(StopPlayingProcedure, svc.StopPlaying, opts...))
	mux.Handle(PauseOrResumeProcedure, connect.NewUnaryHandler(PauseOrResumeProcedure, svc.PauseOrResume, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(WatchStateProcedure, connect.NewServerStreamHandler(WatchStateProcedure, svc.WatchState, opts...))
	mux.Handle(GetHistoryProcedure, connect.NewUnaryHandler(GetHistoryProcedure, svc.GetHistory, opts...))

	return "/" + PlaybackServiceName + "/", mux
}

// Register mounts svc on mux, guarding commands with token when it is set.
func Register(mux *http.ServeMux, svc *PlaybackService, token string) {
	path, handler := NewPlaybackServiceHandler(svc, connect.WithInterceptors(NewControlAuthInterceptor(token)))
	mux.Handle(path, handler)
}
