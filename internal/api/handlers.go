package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/repo"
)

type ManagerInterface interface {
	Get(id string) (*repo.RepositoryIndexer, bool)
	SearchAllText(queryText string) (*index.Result, error)
	Stats() []repo.RepositoryStats
}

type WatcherInterface interface {
	Start() error
	Stop() error
	IsRunning() bool
}

type Server struct {
	Manager ManagerInterface
	Watcher WatcherInterface
}

type SearchInput struct {
	Query      string `query:"q" doc:"Free-text query across coordinate fields" example:"commons"`
	GroupID    string `query:"g" doc:"Group id for coordinate search" example:"org.apache.commons"`
	ArtifactID string `query:"a" doc:"Artifact id for coordinate search" example:"commons-lang3"`
	Version    string `query:"v" doc:"Version filter for coordinate search (empty matches all)" example:"3.12.0"`
	Repository string `query:"repository" doc:"Target repository id (free-text queries search all searchable repositories when empty)" example:"releases"`
}

type SearchOutput struct {
	Body *index.Result
}

type ReindexInput struct {
	ID   string `path:"id" doc:"Repository id"`
	Body struct {
		Path string `json:"path,omitempty" doc:"Subtree to scan (whole repository when empty)"`
	}
}

type StatusOutput struct {
	Body struct {
		Status string `json:"status" example:"reindexing started"`
	}
}

type SyncInput struct {
	ID string `path:"id" doc:"Repository id"`
}

type DeleteArtifactsInput struct {
	ID   string `path:"id" doc:"Repository id"`
	Body struct {
		Artifacts []artifact.ArtifactInfo `json:"artifacts" doc:"Descriptors to retract; empty fields act as wildcards"`
	}
}

type StatsOutput struct {
	Body struct {
		Repositories []repo.RepositoryStats `json:"repositories"`
	}
}

type WatchStatusOutput struct {
	Body struct {
		Status string `json:"status" enum:"running,stopped" example:"running"`
	}
}

func RegisterHandlers(srv *Server, api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Summary:     "Search indexed artifacts",
		Description: "Free-text search across coordinate fields (q) or exact coordinate search (g, a, optional v)",
		Method:      "GET",
		Path:        "/search",
		Tags:        []string{"Search"},
	}, srv.handleSearch)

	huma.Register(api, huma.Operation{
		OperationID: "reindex",
		Summary:     "Reindex a repository",
		Description: "Scan the repository tree (or a subtree) and index every discovered artifact",
		Method:      "POST",
		Path:        "/repositories/{id}/reindex",
		Tags:        []string{"Index"},
	}, srv.handleReindex)

	huma.Register(api, huma.Operation{
		OperationID: "sync",
		Summary:     "Incrementally sync a repository",
		Description: "Add new and changed artifacts, retract deleted ones",
		Method:      "POST",
		Path:        "/repositories/{id}/sync",
		Tags:        []string{"Index"},
	}, srv.handleSync)

	huma.Register(api, huma.Operation{
		OperationID: "delete-artifacts",
		Summary:     "Retract artifacts from a repository index",
		Method:      "DELETE",
		Path:        "/repositories/{id}/artifacts",
		Tags:        []string{"Index"},
	}, srv.handleDeleteArtifacts)

	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Summary:     "Per-repository index statistics",
		Method:      "GET",
		Path:        "/stats",
		Tags:        []string{"Status"},
	}, srv.handleStats)

	huma.Register(api, huma.Operation{
		OperationID: "watch-status",
		Summary:     "Watcher status",
		Method:      "GET",
		Path:        "/watch/status",
		Tags:        []string{"Watch"},
	}, srv.handleWatchStatus)

	huma.Register(api, huma.Operation{
		OperationID: "watch-start",
		Summary:     "Start the repository watcher",
		Method:      "POST",
		Path:        "/watch/start",
		Tags:        []string{"Watch"},
	}, srv.handleWatchStart)

	huma.Register(api, huma.Operation{
		OperationID: "watch-stop",
		Summary:     "Stop the repository watcher",
		Method:      "POST",
		Path:        "/watch/stop",
		Tags:        []string{"Watch"},
	}, srv.handleWatchStop)
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	var result *index.Result
	var err error

	switch {
	case input.Query != "" && input.Repository == "":
		result, err = s.Manager.SearchAllText(input.Query)
	case input.Query != "":
		ri, ok := s.Manager.Get(input.Repository)
		if !ok {
			return nil, huma.Error404NotFound("unknown repository: " + input.Repository)
		}
		result, err = ri.SearchText(input.Query)
	case input.GroupID != "" || input.ArtifactID != "":
		if input.Repository == "" {
			return nil, huma.Error400BadRequest("coordinate search requires the repository parameter")
		}
		ri, ok := s.Manager.Get(input.Repository)
		if !ok {
			return nil, huma.Error404NotFound("unknown repository: " + input.Repository)
		}
		result, err = ri.SearchCoordinates(input.GroupID, input.ArtifactID, input.Version)
	default:
		return nil, huma.Error400BadRequest("either q or g/a parameters are required")
	}

	if err != nil {
		return nil, searchError(err)
	}
	return &SearchOutput{Body: result}, nil
}

func (s *Server) handleReindex(ctx context.Context, input *ReindexInput) (*StatusOutput, error) {
	ri, ok := s.Manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("unknown repository: " + input.ID)
	}

	path := input.Body.Path
	go func() {
		result, err := ri.Index(path)
		if err != nil {
			log.Errorf("reindex of %s failed: %v", ri.ID(), err)
			return
		}
		log.Infof("reindex of %s complete: %d files, %d errors", ri.ID(), result.TotalFiles, len(result.Errors))
	}()

	out := &StatusOutput{}
	out.Body.Status = "reindexing started"
	return out, nil
}

func (s *Server) handleSync(ctx context.Context, input *SyncInput) (*StatusOutput, error) {
	ri, ok := s.Manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("unknown repository: " + input.ID)
	}

	go func() {
		if _, err := ri.Sync(); err != nil {
			log.Errorf("sync of %s failed: %v", ri.ID(), err)
		}
	}()

	out := &StatusOutput{}
	out.Body.Status = "sync started"
	return out, nil
}

func (s *Server) handleDeleteArtifacts(ctx context.Context, input *DeleteArtifactsInput) (*StatusOutput, error) {
	ri, ok := s.Manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("unknown repository: " + input.ID)
	}
	if len(input.Body.Artifacts) == 0 {
		return nil, huma.Error400BadRequest("artifacts list must not be empty")
	}

	if err := ri.Delete(input.Body.Artifacts); err != nil {
		return nil, searchError(err)
	}

	out := &StatusOutput{}
	out.Body.Status = "artifacts deleted"
	return out, nil
}

func (s *Server) handleStats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	out := &StatsOutput{}
	out.Body.Repositories = s.Manager.Stats()
	return out, nil
}

func (s *Server) handleWatchStatus(ctx context.Context, input *struct{}) (*WatchStatusOutput, error) {
	out := &WatchStatusOutput{}
	out.Body.Status = "stopped"
	if s.Watcher.IsRunning() {
		out.Body.Status = "running"
	}
	return out, nil
}

func (s *Server) handleWatchStart(ctx context.Context, input *struct{}) (*StatusOutput, error) {
	if s.Watcher.IsRunning() {
		return nil, huma.Error409Conflict("watcher already running")
	}
	if err := s.Watcher.Start(); err != nil {
		return nil, huma.Error500InternalServerError("failed to start watcher", err)
	}

	out := &StatusOutput{}
	out.Body.Status = "watcher started"
	return out, nil
}

func (s *Server) handleWatchStop(ctx context.Context, input *struct{}) (*StatusOutput, error) {
	if !s.Watcher.IsRunning() {
		return nil, huma.Error409Conflict("watcher not running")
	}
	if err := s.Watcher.Stop(); err != nil {
		return nil, huma.Error500InternalServerError("failed to stop watcher", err)
	}

	out := &StatusOutput{}
	out.Body.Status = "watcher stopped"
	return out, nil
}

// searchError maps typed index errors onto HTTP statuses.
func searchError(err error) error {
	switch {
	case errdefs.IsType(err, errdefs.ErrTypeQueryParse):
		return huma.Error400BadRequest(err.Error())
	case errdefs.IsType(err, errdefs.ErrTypeContextClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("search failed", err)
	}
}
