package contentcore

import (
	"context"

	"github.com/google/uuid"
)

// diffContributors computes the minimal row changes taking current to
// the desired speaker/moderator pair.
//
// A current contributor is removed when it no longer matches its own
// role's desired user: the speaker row when its user is not the desired
// speaker, any other row when its user is not the desired moderator.
// This also covers a speaker/moderator swap, where both old rows leave
// and both users re-enter under their new roles. Rows that survive are
// never re-added, so the diff is idempotent and a user id never appears
// twice.
func diffContributors(current []Contributor, desired ContributorAssignment) (toRemove []uuid.UUID, toAdd []Contributor) {
	remaining := make(map[uuid.UUID]struct{}, len(current))
	for _, c := range current {
		keep := false
		if c.Role == RoleSpeaker {
			keep = c.UserID == desired.SpeakerID
		} else {
			keep = c.UserID == desired.ModeratorID
		}
		if keep {
			remaining[c.UserID] = struct{}{}
		} else {
			toRemove = append(toRemove, c.UserID)
		}
	}

	want := []Contributor{
		{UserID: desired.SpeakerID, Role: RoleSpeaker},
		{UserID: desired.ModeratorID, Role: RoleModerator},
	}
	for _, c := range want {
		if _, ok := remaining[c.UserID]; !ok {
			toAdd = append(toAdd, c)
		}
	}
	return toRemove, toAdd
}

// applyAssignment reconciles the stored contributor rows to the desired
// pair inside the caller's transaction.
func applyAssignment(ctx context.Context, tx Repository, contentID uuid.UUID, desired ContributorAssignment) error {
	current, err := tx.ListContributors(ctx, contentID)
	if err != nil {
		return err
	}
	toRemove, toAdd := diffContributors(current, desired)
	if len(toRemove) > 0 {
		if err := tx.RemoveContributors(ctx, contentID, toRemove); err != nil {
			return err
		}
	}
	if len(toAdd) > 0 {
		if err := tx.AddContributors(ctx, contentID, toAdd); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) ReconcileBroadcastContributors(ctx context.Context, req ReconcileBroadcastRequest) ([]Contributor, error) {
	actor, err := s.identity.GetUser(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	content, err := s.repo.GetContentByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if content.Type != TypeBroadcast {
		return nil, Validationf("contributors are only valid for broadcast content")
	}
	if err := validateAuthor(actor, content); err != nil {
		return nil, err
	}
	desired := ContributorAssignment{SpeakerID: req.SpeakerID, ModeratorID: req.ModeratorID}
	if err := s.validateAssignment(ctx, desired); err != nil {
		return nil, err
	}

	var final []Contributor
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if err := applyAssignment(ctx, tx, req.ContentID, desired); err != nil {
			return err
		}
		content.UpdatedAt = s.clock.Now()
		if err := tx.UpdateContent(ctx, content); err != nil {
			return err
		}
		var err error
		final, err = tx.ListContributors(ctx, req.ContentID)
		return err
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "reconcile_contributors", Err: err}
	}
	return final, nil
}
