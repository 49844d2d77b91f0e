package services

import (
	"errors"

	"github.com/qianlnk/codewords/models"
)

// Illegal intents: the actor may not do this now.
var (
	ErrNotOwner         = errors.New("only the room owner can do that")
	ErrNotYourTurn      = errors.New("it is not your team's turn")
	ErrNotClueGiver     = errors.New("only the active clue-giver can give a clue")
	ErrNotGuesser       = errors.New("only guessers of the active team can do that")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrGameInProgress   = errors.New("game is in progress")
	ErrGameNotOver      = errors.New("game is not over")
	ErrGameOver         = errors.New("game is over")
	ErrGamePaused       = errors.New("game is paused")
	ErrNotPaused        = errors.New("game is not paused")
	ErrClueAlreadyGiven = errors.New("a clue is already active")
	ErrNoActiveClue     = errors.New("no clue has been given")
	ErrNoGuessesLeft    = errors.New("no guesses left this turn")
	ErrClueGiverTaken   = errors.New("that team already has a clue-giver")
	ErrTeamsNotReady    = errors.New("each team needs one clue-giver and at least one guesser")
	ErrNotEnoughPlayers = errors.New("not enough connected players")
	ErrNotVoted         = errors.New("vote for the card before confirming it")
	ErrNotEnoughVotes   = errors.New("not enough votes to reveal the card")
	ErrStaleTurn        = errors.New("turn already ended")
	ErrTimerRunning     = errors.New("turn timer has not expired")
	ErrRoleChangeLocked = errors.New("roles can only change in the lobby or while paused")
	ErrUnknownPlayer    = errors.New("player is not in this room")
	ErrResumeConditions = errors.New("paused team still lacks a connected clue-giver and guesser")
)

// Malformed input.
var (
	ErrInvalidClue     = errors.New("invalid clue")
	ErrInvalidCount    = errors.New("invalid clue count")
	ErrInvalidCard     = errors.New("invalid card")
	ErrInvalidDuration = errors.New("invalid turn duration")
	ErrInvalidWordPack = errors.New("invalid word pack")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTeam     = errors.New("invalid team")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrUnknownIntent   = models.ErrUnknownIntent
)

// Race lost.
var ErrCardAlreadyRevealed = errors.New("card already revealed")

// Infrastructure.
var (
	ErrRoomClosed     = errors.New("room is closed")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotEnoughWords = errors.New("word pack has fewer than 25 unique words")
)
