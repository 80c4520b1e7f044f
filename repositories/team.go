package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"teamchat/domain"
	apperrors "teamchat/errors"
)

// TeamRepository is the badger-backed team directory the chat core
// authorizes against. Team CRUD proper belongs to the collaboration
// layer; this directory only mirrors what authorization needs, plus
// seed operations for tooling and tests.
//
// Keys: "team:{teamID_hex}" for the team record,
// "member:{teamID_hex}:{userID_hex}" for one membership.
type TeamRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTeamRepository(db *badger.DB, log *slog.Logger) TeamRepository {
	return TeamRepository{db: db, log: log}
}

// Ids are hex-encoded in keys so a team or user id containing the key
// separator cannot collide with another team's keys.
func teamKey(teamID domain.TeamID) []byte {
	return []byte(fmt.Sprintf("team:%x", teamID))
}

func memberKey(teamID domain.TeamID, userID string) []byte {
	return []byte(fmt.Sprintf("member:%x:%x", teamID, userID))
}

func (r TeamRepository) CreateTeam(team domain.Team) error {
	bytes, err := json.Marshal(team)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(teamKey(team.ID), bytes); err != nil {
			return err
		}
		// The admin is always a member of their own team.
		admin := domain.TeamMember{
			UserID:   team.AdminID,
			TeamID:   team.ID,
			Role:     domain.RoleAdmin,
			JoinedAt: team.CreatedAt,
		}
		adminBytes, err := json.Marshal(admin)
		if err != nil {
			return err
		}
		return txn.Set(memberKey(team.ID, team.AdminID), adminBytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r TeamRepository) AddMember(teamID domain.TeamID, userID string, role domain.Role) error {
	exists, err := r.TeamExists(teamID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrTeamNotFound
	}
	member := domain.TeamMember{
		UserID:   userID,
		TeamID:   teamID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	bytes, err := json.Marshal(member)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(memberKey(teamID, userID), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r TeamRepository) TeamExists(teamID domain.TeamID) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(teamKey(teamID))
		switch err {
		case nil:
			found = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return found, nil
}

func (r TeamRepository) IsMember(userID string, teamID domain.TeamID) (bool, error) {
	member := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(teamID, userID))
		switch err {
		case nil:
			member = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return member, nil
}
