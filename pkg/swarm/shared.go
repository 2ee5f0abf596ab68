// Package swarm coordinates multiple BottomFeed agents: shared dedup
// state, round-robin challenge role assignment and debate fan-out.
package swarm

import (
	"sync"
	"time"
)

// ChallengeRole is a perspective an agent takes in a Grand Challenge.
type ChallengeRole string

const (
	RoleContributor ChallengeRole = "contributor"
	RoleRedTeam     ChallengeRole = "red_team"
	RoleSynthesizer ChallengeRole = "synthesizer"
	RoleAnalyst     ChallengeRole = "analyst"
	RoleFactChecker ChallengeRole = "fact_checker"
	RoleContrarian  ChallengeRole = "contrarian"
)

// roleCycle is the round-robin assignment order.
var roleCycle = []ChallengeRole{
	RoleContributor,
	RoleRedTeam,
	RoleSynthesizer,
	RoleAnalyst,
	RoleFactChecker,
	RoleContrarian,
}

// ActionRecord is one agent action kept for coordination lookups.
type ActionRecord struct {
	Agent     string
	Action    string
	TargetID  string
	Timestamp time.Time
}

// SharedState is the in-memory coordination store shared by all agents
// in the swarm. A single mutex guards every map; operations are short
// enough that finer locking buys nothing.
type SharedState struct {
	mu         sync.Mutex
	maxHistory int

	seenPosts  map[string]map[string]struct{}      // post_id -> usernames
	challenges map[string]map[string]ChallengeRole // challenge_id -> username -> role
	debates    map[string]map[string]struct{}      // debate_id -> usernames notified
	actions    map[string][]ActionRecord           // agent -> bounded FIFO

	now func() time.Time
}

func NewSharedState(maxHistory int) *SharedState {
	return &SharedState{
		maxHistory: maxHistory,
		seenPosts:  make(map[string]map[string]struct{}),
		challenges: make(map[string]map[string]ChallengeRole),
		debates:    make(map[string]map[string]struct{}),
		actions:    make(map[string][]ActionRecord),
		now:        time.Now,
	}
}

// MarkSeen records that an agent has seen a post.
func (s *SharedState) MarkSeen(postID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.seenPosts[postID]
	if !ok {
		set = make(map[string]struct{})
		s.seenPosts[postID] = set
	}
	set[username] = struct{}{}
}

// HasAnyAgentSeen reports whether any swarm agent has seen the post.
func (s *SharedState) HasAnyAgentSeen(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seenPosts[postID]) > 0
}

// RecordAction appends to the agent's action history, evicting the
// oldest record once the history exceeds its bound.
func (s *SharedState) RecordAction(agent, action, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.actions[agent], ActionRecord{
		Agent:     agent,
		Action:    action,
		TargetID:  targetID,
		Timestamp: s.now(),
	})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.actions[agent] = history
}

// HasAnyAgentDone reports whether any agent performed the action on
// the target.
func (s *SharedState) HasAnyAgentDone(action, targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, history := range s.actions {
		for _, record := range history {
			if record.Action == action && record.TargetID == targetID {
				return true
			}
		}
	}
	return false
}

// AssignChallengeRole records an agent's role for a challenge.
func (s *SharedState) AssignChallengeRole(challengeID, username string, role ChallengeRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles, ok := s.challenges[challengeID]
	if !ok {
		roles = make(map[string]ChallengeRole)
		s.challenges[challengeID] = roles
	}
	roles[username] = role
}

// ChallengeRoles returns a copy of the role assignments for a challenge.
func (s *SharedState) ChallengeRoles(challengeID string) map[string]ChallengeRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := s.challenges[challengeID]
	out := make(map[string]ChallengeRole, len(roles))
	for username, role := range roles {
		out[username] = role
	}
	return out
}

// UnassignedAgents returns, in input order, the agents without a role
// for the challenge.
func (s *SharedState) UnassignedAgents(challengeID string, usernames []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := s.challenges[challengeID]
	var out []string
	for _, username := range usernames {
		if _, assigned := roles[username]; !assigned {
			out = append(out, username)
		}
	}
	return out
}

// AssignDebate marks an agent as notified about a debate.
func (s *SharedState) AssignDebate(debateID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	participants, ok := s.debates[debateID]
	if !ok {
		participants = make(map[string]struct{})
		s.debates[debateID] = participants
	}
	participants[username] = struct{}{}
}

// IsDebateNotified reports whether the agent was already told about
// the debate.
func (s *SharedState) IsDebateNotified(debateID, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, notified := s.debates[debateID][username]
	return notified
}

// PruneSeen drops arbitrary entries until the seen map fits maxEntries.
func (s *SharedState) PruneSeen(maxEntries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	excess := len(s.seenPosts) - maxEntries
	if excess <= 0 {
		return
	}
	for postID := range s.seenPosts {
		delete(s.seenPosts, postID)
		excess--
		if excess == 0 {
			return
		}
	}
}
