package group

import (
	"context"
	"sort"
)

// Authorizer answers whether an actor may edit or schedule a group.
type Authorizer interface {
	CanSchedule(ctx context.Context, actorID string, g *Group) (bool, error)
}

// repositoryAuthorizer checks grants stored next to the groups.
type repositoryAuthorizer struct {
	repo Repository
}

// NewRepositoryAuthorizer returns an Authorizer backed by group_permissions.
func NewRepositoryAuthorizer(repo Repository) Authorizer {
	return &repositoryAuthorizer{repo: repo}
}

func (a *repositoryAuthorizer) CanSchedule(ctx context.Context, actorID string, g *Group) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	return a.repo.HasSchedulePermission(ctx, g.ID, actorID)
}

// Service defines business logic for groups on the scheduler.
type Service interface {
	// Authorize narrows the requested ids to schedulable groups the actor may
	// schedule. An empty request yields an empty result, never every group.
	Authorize(ctx context.Context, actorID string, ids []string) (Authorized, error)
}

type service struct {
	repo       Repository
	authorizer Authorizer
}

// NewService creates a new group service.
func NewService(repo Repository, authorizer Authorizer) Service {
	return &service{repo: repo, authorizer: authorizer}
}

func (s *service) Authorize(ctx context.Context, actorID string, ids []string) (Authorized, error) {
	result := Authorized{IDs: make(map[string]struct{})}
	if len(ids) == 0 {
		return result, nil
	}

	groups, err := s.repo.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return Authorized{}, err
	}

	for _, g := range groups {
		if !g.IsSchedulable() {
			continue
		}
		ok, err := s.authorizer.CanSchedule(ctx, actorID, g)
		if err != nil {
			return Authorized{}, err
		}
		if !ok {
			continue
		}
		result.Groups = append(result.Groups, g)
		result.IDs[g.ID] = struct{}{}
	}

	sort.SliceStable(result.Groups, func(i, j int) bool {
		a, b := result.Groups[i], result.Groups[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Name < b.Name
	})

	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
