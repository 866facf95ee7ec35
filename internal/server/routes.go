// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/semvault-dev/semvault/internal/manager"
	"github.com/semvault-dev/semvault/internal/store"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

func (s *Server) registerRoutes() {
	// Content endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "add-content",
		Method:      http.MethodPost,
		Path:        "/api/v1/content",
		Summary:     "Add content",
		Tags:        []string{"content"},
	}, s.handleAddContent)

	huma.Register(s.api, huma.Operation{
		OperationID: "add-content-batch",
		Method:      http.MethodPost,
		Path:        "/api/v1/content/batch",
		Summary:     "Add multiple content items",
		Tags:        []string{"content"},
	}, s.handleAddContentBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "find-similar-content",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{id}/similar",
		Summary:     "Find content similar to an existing item",
		Tags:        []string{"content"},
	}, s.handleFindSimilar)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-content",
		Method:      http.MethodPatch,
		Path:        "/api/v1/content/{id}",
		Summary:     "Update content",
		Tags:        []string{"content"},
	}, s.handleUpdateContent)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-content",
		Method:      http.MethodDelete,
		Path:        "/api/v1/content/{id}",
		Summary:     "Delete content",
		Tags:        []string{"content"},
	}, s.handleDeleteContent)

	// Search endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "semantic-search",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Search content semantically",
		Tags:        []string{"search"},
	}, s.handleSearch)

	// Organize endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "organize-content",
		Method:      http.MethodPost,
		Path:        "/api/v1/owners/{ownerId}/organize",
		Summary:     "Cluster an owner's content",
		Tags:        []string{"organize"},
	}, s.handleOrganize)

	// Stats endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "content-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Content statistics",
		Tags:        []string{"system"},
	}, s.handleStats)
}

// --- Request/Response types for huma ---

type addContentInput struct {
	Body struct {
		Content  string         `json:"content" minLength:"1" doc:"Text to embed and store"`
		Metadata map[string]any `json:"metadata,omitempty" doc:"Arbitrary metadata"`
		Kind     string         `json:"kind,omitempty" doc:"Content kind (text, image, audio, document)"`
		OwnerID  string         `json:"owner_id,omitempty" doc:"Owning user"`
	}
}
type addContentOutput struct {
	Body struct {
		ID string `json:"id" doc:"Assigned record ID"`
	}
}

type addContentBatchInput struct {
	Body struct {
		Items []struct {
			Content  string         `json:"content" minLength:"1"`
			Metadata map[string]any `json:"metadata,omitempty"`
			Kind     string         `json:"kind,omitempty"`
		} `json:"items" minItems:"1"`
		OwnerID string `json:"owner_id,omitempty"`
	}
}
type addContentBatchOutput struct {
	Body struct {
		IDs []string `json:"ids"`
	}
}

type searchInput struct {
	Body struct {
		Query     string         `json:"query" minLength:"1" doc:"Search text"`
		Limit     int            `json:"limit,omitempty" doc:"Maximum results"`
		Threshold *float64       `json:"threshold,omitempty" doc:"Minimum similarity score"`
		Filters   map[string]any `json:"filters,omitempty" doc:"Metadata equality filters"`
		OwnerID   string         `json:"owner_id,omitempty" doc:"Restrict results to one owner"`
	}
}
type searchOutput struct {
	Body struct {
		Results []manager.SearchMatch `json:"results"`
	}
}

type findSimilarInput struct {
	ID    string `path:"id"`
	Limit int    `query:"limit" doc:"Maximum results"`
}
type findSimilarOutput struct {
	Body struct {
		Results []manager.SearchMatch `json:"results"`
	}
}

type updateContentInput struct {
	ID   string `path:"id"`
	Body struct {
		Content  *string        `json:"content,omitempty" doc:"Replacement text"`
		Metadata map[string]any `json:"metadata,omitempty" doc:"Replacement metadata"`
	}
}
type updateContentOutput struct {
	Body struct {
		Updated bool `json:"updated"`
	}
}

type deleteContentInput struct {
	ID string `path:"id"`
}
type deleteContentOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

type organizeInput struct {
	OwnerID string `path:"ownerId"`
}
type organizeOutput struct {
	Body manager.Organization
}

type statsInput struct {
	OwnerID string `query:"owner_id" doc:"Include a per-owner breakdown"`
}
type statsOutput struct {
	Body manager.StatsReport
}

// --- Handlers ---

func (s *Server) handleAddContent(ctx context.Context, input *addContentInput) (*addContentOutput, error) {
	kind, err := store.ParseKind(input.Body.Kind)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	id, err := s.mgr.AddContent(ctx, input.Body.Content, store.MetadataFromAny(input.Body.Metadata), kind, input.Body.OwnerID)
	if err != nil {
		return nil, apiError(err, "adding content")
	}

	out := &addContentOutput{}
	out.Body.ID = id
	return out, nil
}

func (s *Server) handleAddContentBatch(ctx context.Context, input *addContentBatchInput) (*addContentBatchOutput, error) {
	items := make([]manager.Item, len(input.Body.Items))
	for i, raw := range input.Body.Items {
		kind, err := store.ParseKind(raw.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest(fmt.Sprintf("items[%d]: %s", i, err))
		}
		items[i] = manager.Item{
			Content:  raw.Content,
			Metadata: store.MetadataFromAny(raw.Metadata),
			Kind:     kind,
		}
	}

	ids, err := s.mgr.AddMultipleContent(ctx, items, input.Body.OwnerID)
	if err != nil {
		return nil, apiError(err, "adding content batch")
	}

	out := &addContentBatchOutput{}
	out.Body.IDs = ids
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	matches, err := s.mgr.SemanticSearch(ctx, input.Body.Query, manager.SearchOptions{
		Limit:     input.Body.Limit,
		Threshold: input.Body.Threshold,
		Filters:   store.MetadataFromAny(input.Body.Filters),
		OwnerID:   input.Body.OwnerID,
	})
	if err != nil {
		return nil, apiError(err, "searching content")
	}

	out := &searchOutput{}
	out.Body.Results = matches
	return out, nil
}

func (s *Server) handleFindSimilar(ctx context.Context, input *findSimilarInput) (*findSimilarOutput, error) {
	matches, err := s.mgr.FindSimilarContent(ctx, input.ID, input.Limit)
	if err != nil {
		if semerr.IsNotFound(err) {
			return nil, huma.Error404NotFound(fmt.Sprintf("content %q not found", input.ID))
		}
		return nil, apiError(err, "finding similar content")
	}

	out := &findSimilarOutput{}
	out.Body.Results = matches
	return out, nil
}

func (s *Server) handleUpdateContent(ctx context.Context, input *updateContentInput) (*updateContentOutput, error) {
	found, err := s.mgr.UpdateContent(ctx, input.ID, manager.ContentUpdate{
		Content:  input.Body.Content,
		Metadata: store.MetadataFromAny(input.Body.Metadata),
	})
	if err != nil {
		return nil, apiError(err, "updating content")
	}
	if !found {
		return nil, huma.Error404NotFound(fmt.Sprintf("content %q not found", input.ID))
	}

	out := &updateContentOutput{}
	out.Body.Updated = true
	return out, nil
}

func (s *Server) handleDeleteContent(ctx context.Context, input *deleteContentInput) (*deleteContentOutput, error) {
	found, err := s.mgr.DeleteContent(ctx, input.ID)
	if err != nil {
		return nil, apiError(err, "deleting content")
	}
	if !found {
		return nil, huma.Error404NotFound(fmt.Sprintf("content %q not found", input.ID))
	}

	out := &deleteContentOutput{}
	out.Body.Deleted = true
	return out, nil
}

func (s *Server) handleOrganize(ctx context.Context, input *organizeInput) (*organizeOutput, error) {
	org, err := s.mgr.OrganizeUserContent(ctx, input.OwnerID)
	if err != nil {
		return nil, apiError(err, "organizing content")
	}
	return &organizeOutput{Body: *org}, nil
}

func (s *Server) handleStats(ctx context.Context, input *statsInput) (*statsOutput, error) {
	report, err := s.mgr.ContentStats(ctx, input.OwnerID)
	if err != nil {
		return nil, apiError(err, "collecting stats")
	}
	return &statsOutput{Body: *report}, nil
}

// apiError maps a domain error onto the matching HTTP status.
func apiError(err error, action string) error {
	return huma.NewError(semerr.HTTPStatus(err), fmt.Sprintf("%s: %s", action, err))
}
