package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IntentType names a client intent on the wire.
type IntentType string

const (
	IntentSetLobbyRole      IntentType = "setLobbyRole"
	IntentRandomizeTeams    IntentType = "randomizeTeams"
	IntentStartGame         IntentType = "startGame"
	IntentGiveClue          IntentType = "giveClue"
	IntentVoteCard          IntentType = "voteCard"
	IntentConfirmReveal     IntentType = "confirmReveal"
	IntentEndTurn           IntentType = "endTurn"
	IntentEndGame           IntentType = "endGame"
	IntentRematch           IntentType = "rematch"
	IntentResumeGame        IntentType = "resumeGame"
	IntentSetTurnDuration   IntentType = "setTurnDuration"
	IntentSetWordPack       IntentType = "setWordPack"
	IntentSendMessage       IntentType = "sendMessage"
	IntentClearStalePlayers IntentType = "clearStalePlayers"
	IntentLeave             IntentType = "leave"
)

// ErrUnknownIntent is returned for intent types outside the closed set.
var ErrUnknownIntent = errors.New("unknown-intent")

// Intent is a player request against a room. The set of implementations is
// closed: only types in this package satisfy it.
type Intent interface {
	Type() IntentType
	sealed()
}

type SetLobbyRole struct {
	Team Team `json:"team"`
	Role Role `json:"role"`
}

type RandomizeTeams struct{}

type StartGame struct{}

type GiveClue struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type VoteCard struct {
	CardIndex int `json:"cardIndex"`
}

type ConfirmReveal struct {
	CardIndex int `json:"cardIndex"`
}

// EndTurn ends the current turn. Turn, when set, must match the room's turn
// counter so duplicate timer firings are dropped.
type EndTurn struct {
	Turn *int `json:"turn,omitempty"`
}

type EndGame struct{}

type Rematch struct{}

type ResumeGame struct{}

type SetTurnDuration struct {
	Seconds int `json:"seconds"`
}

type SetWordPack struct {
	Pack WordPack `json:"pack"`
}

type SendMessage struct {
	Text string      `json:"text"`
	Kind MessageType `json:"type,omitempty"`
}

type ClearStalePlayers struct{}

type Leave struct{}

func (SetLobbyRole) Type() IntentType      { return IntentSetLobbyRole }
func (RandomizeTeams) Type() IntentType    { return IntentRandomizeTeams }
func (StartGame) Type() IntentType         { return IntentStartGame }
func (GiveClue) Type() IntentType          { return IntentGiveClue }
func (VoteCard) Type() IntentType          { return IntentVoteCard }
func (ConfirmReveal) Type() IntentType     { return IntentConfirmReveal }
func (EndTurn) Type() IntentType           { return IntentEndTurn }
func (EndGame) Type() IntentType           { return IntentEndGame }
func (Rematch) Type() IntentType           { return IntentRematch }
func (ResumeGame) Type() IntentType        { return IntentResumeGame }
func (SetTurnDuration) Type() IntentType   { return IntentSetTurnDuration }
func (SetWordPack) Type() IntentType       { return IntentSetWordPack }
func (SendMessage) Type() IntentType       { return IntentSendMessage }
func (ClearStalePlayers) Type() IntentType { return IntentClearStalePlayers }
func (Leave) Type() IntentType             { return IntentLeave }

func (SetLobbyRole) sealed()      {}
func (RandomizeTeams) sealed()    {}
func (StartGame) sealed()         {}
func (GiveClue) sealed()          {}
func (VoteCard) sealed()          {}
func (ConfirmReveal) sealed()     {}
func (EndTurn) sealed()           {}
func (EndGame) sealed()           {}
func (Rematch) sealed()           {}
func (ResumeGame) sealed()        {}
func (SetTurnDuration) sealed()   {}
func (SetWordPack) sealed()       {}
func (SendMessage) sealed()       {}
func (ClearStalePlayers) sealed() {}
func (Leave) sealed()             {}

// DecodeIntent turns a client envelope into a typed intent.
func DecodeIntent(t IntentType, data json.RawMessage) (Intent, error) {
	var intent Intent
	switch t {
	case IntentSetLobbyRole:
		intent = &SetLobbyRole{}
	case IntentRandomizeTeams:
		return RandomizeTeams{}, nil
	case IntentStartGame:
		return StartGame{}, nil
	case IntentGiveClue:
		intent = &GiveClue{}
	case IntentVoteCard:
		intent = &VoteCard{}
	case IntentConfirmReveal:
		intent = &ConfirmReveal{}
	case IntentEndTurn:
		intent = &EndTurn{}
	case IntentEndGame:
		return EndGame{}, nil
	case IntentRematch:
		return Rematch{}, nil
	case IntentResumeGame:
		return ResumeGame{}, nil
	case IntentSetTurnDuration:
		intent = &SetTurnDuration{}
	case IntentSetWordPack:
		intent = &SetWordPack{}
	case IntentSendMessage:
		intent = &SendMessage{}
	case IntentClearStalePlayers:
		return ClearStalePlayers{}, nil
	case IntentLeave:
		return Leave{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, t)
	}

	if len(data) == 0 || string(data) == "null" {
		if t == IntentEndTurn {
			return EndTurn{}, nil
		}
		return nil, fmt.Errorf("decode %s: missing data", t)
	}
	if err := json.Unmarshal(data, intent); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}

	// hand out values so the state machine switch matches on plain types
	switch v := intent.(type) {
	case *SetLobbyRole:
		return *v, nil
	case *GiveClue:
		return *v, nil
	case *VoteCard:
		return *v, nil
	case *ConfirmReveal:
		return *v, nil
	case *EndTurn:
		return *v, nil
	case *SetTurnDuration:
		return *v, nil
	case *SetWordPack:
		return *v, nil
	case *SendMessage:
		return *v, nil
	}
	return intent, nil
}
