package services

import (
	"context"
	"fmt"

	"github.com/qianlnk/codewords/models"
)

// StateMachine applies intents to a GameState. Every intent either fully
// succeeds or leaves the room untouched.
type StateMachine struct {
	game *GameState
}

// NewStateMachine creates a state machine over game.
func NewStateMachine(game *GameState) *StateMachine {
	return &StateMachine{game: game}
}

// Apply runs intent on behalf of actorID.
func (sm *StateMachine) Apply(ctx context.Context, actorID string, intent models.Intent) error {
	gs := sm.game
	actor, ok := gs.Room.Players[actorID]
	if !ok {
		return ErrUnknownPlayer
	}

	var err error
	switch in := intent.(type) {
	case models.SetLobbyRole:
		err = gs.setLobbyRole(actor, in)
	case models.RandomizeTeams:
		err = gs.randomizeTeams(actor)
	case models.StartGame:
		err = sm.startGame(ctx, actor)
	case models.GiveClue:
		err = sm.giveClue(actor, in)
	case models.VoteCard:
		err = sm.voteCard(actor, in)
	case models.ConfirmReveal:
		err = sm.confirmReveal(actor, in)
	case models.EndTurn:
		err = sm.endTurn(actor, in)
	case models.EndGame:
		err = sm.endGame(actor)
	case models.Rematch:
		err = sm.rematch(ctx, actor)
	case models.ResumeGame:
		err = sm.resumeGame(actor)
	case models.SetTurnDuration:
		err = gs.setTurnDuration(actor, in)
	case models.SetWordPack:
		err = gs.setWordPack(actor, in)
	case models.SendMessage:
		err = gs.sendMessage(actor, in)
	case models.ClearStalePlayers:
		err = gs.clearStalePlayers(actor)
	case models.Leave:
		err = gs.leave(actor)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownIntent, intent)
	}
	if err != nil {
		return err
	}
	gs.touch()
	return nil
}

// Tick ends the turn once its timer has run out. It reports whether the
// room changed.
func (sm *StateMachine) Tick() bool {
	if !sm.game.timerExpired() {
		return false
	}
	sm.game.addSystemMessage(fmt.Sprintf("Time is up for %s team", sm.game.Room.CurrentTeam))
	sm.switchTurn()
	return true
}

func (sm *StateMachine) requireActive() error {
	room := sm.game.Room
	switch {
	case !room.GameStarted:
		return ErrGameNotStarted
	case room.GameOver:
		return ErrGameOver
	case room.Paused:
		return ErrGamePaused
	}
	return nil
}

// newBoard draws and labels a board before any room field is touched.
func (sm *StateMachine) newBoard(ctx context.Context, startingTeam models.Team) ([]models.Card, error) {
	gs := sm.game
	boardWords, err := GenerateBoard(ctx, gs.words, gs.Room.WordPack, gs.rng)
	if err != nil {
		return nil, err
	}
	return AssignTeams(boardWords, startingTeam, gs.rng)
}

func (sm *StateMachine) startGame(ctx context.Context, actor *models.Player) error {
	gs := sm.game
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if gs.Room.GameStarted {
		return ErrGameInProgress
	}
	if !TeamsAreReady(gs.Room.OrderedPlayers()) {
		return ErrTeamsNotReady
	}
	board, err := sm.newBoard(ctx, gs.Room.StartingTeam)
	if err != nil {
		return err
	}

	sm.beginGame(board, gs.Room.StartingTeam)
	gs.addSystemMessage(fmt.Sprintf("Game started: %s team goes first", gs.Room.StartingTeam))
	gs.evaluatePause()
	return nil
}

// beginGame resets every per-game field around a fresh board.
func (sm *StateMachine) beginGame(board []models.Card, startingTeam models.Team) {
	room := sm.game.Room
	now := sm.game.now()

	room.Board = board
	room.StartingTeam = startingTeam
	room.CurrentTeam = startingTeam
	room.GameStarted = true
	room.GameOver = false
	room.Winner = models.TeamNone
	room.CurrentClue = nil
	room.RemainingGuesses = nil
	room.TurnStartTime = &now
	room.Turn++
	sm.game.clearPause()
}

func (sm *StateMachine) giveClue(actor *models.Player, in models.GiveClue) error {
	gs := sm.game
	room := gs.Room
	if err := sm.requireActive(); err != nil {
		return err
	}
	if actor.Team != room.CurrentTeam || actor.Role != models.RoleClueGiver || !actor.Connected {
		return ErrNotClueGiver
	}
	if room.CurrentClue != nil {
		return ErrClueAlreadyGiven
	}
	word, err := NormalizeClueWord(in.Word)
	if err != nil {
		return err
	}
	if !IsValidClue(word, room.BoardWords()) {
		return fmt.Errorf("%w: %s is too close to a word on the board", ErrInvalidClue, word)
	}
	if in.Count < 0 || in.Count > gs.settings.MaxClueCount {
		return ErrInvalidCount
	}

	now := gs.now()
	guesses := in.Count + 1
	room.CurrentClue = &models.Clue{Word: word, Count: in.Count}
	room.RemainingGuesses = &guesses
	room.TurnStartTime = &now
	room.ClearVotes()
	gs.addMessage(actor.ID, actor.Name, fmt.Sprintf("%s %d", word, in.Count), models.MessageClue)
	return nil
}

// checkGuess holds the preconditions shared by voting and revealing.
func (sm *StateMachine) checkGuess(actor *models.Player, cardIndex int) (*models.Card, error) {
	room := sm.game.Room
	if err := sm.requireActive(); err != nil {
		return nil, err
	}
	if cardIndex < 0 || cardIndex >= len(room.Board) {
		return nil, ErrInvalidCard
	}
	card := &room.Board[cardIndex]
	if card.Revealed {
		return nil, ErrCardAlreadyRevealed
	}
	if actor.Role != models.RoleGuesser || !actor.Team.IsPlayable() {
		return nil, ErrNotGuesser
	}
	if actor.Team != room.CurrentTeam {
		return nil, ErrNotYourTurn
	}
	if room.CurrentClue == nil {
		return nil, ErrNoActiveClue
	}
	if room.RemainingGuesses == nil || *room.RemainingGuesses <= 0 {
		return nil, ErrNoGuessesLeft
	}
	return card, nil
}

func (sm *StateMachine) voteCard(actor *models.Player, in models.VoteCard) error {
	card, err := sm.checkGuess(actor, in.CardIndex)
	if err != nil {
		return err
	}
	card.ToggleVote(actor.ID)
	return nil
}

func (sm *StateMachine) confirmReveal(actor *models.Player, in models.ConfirmReveal) error {
	gs := sm.game
	room := gs.Room
	card, err := sm.checkGuess(actor, in.CardIndex)
	if err != nil {
		return err
	}
	if !card.HasVote(actor.ID) {
		return ErrNotVoted
	}
	_, _, guessers := gs.teamMembers(room.CurrentTeam)
	if len(card.Votes) < RequiredVotes(guessers) {
		return ErrNotEnoughVotes
	}
	if !card.ClaimReveal(actor.ID) {
		return ErrCardAlreadyRevealed
	}

	gs.addSystemMessage(fmt.Sprintf("%s revealed %s (%s)", actor.Name, card.Word, card.Team))
	sm.applyRevealOutcome(card)
	return nil
}

// applyRevealOutcome resolves a freshly revealed card: trap first, then a
// cleared colour, then a lost turn, otherwise one guess is spent.
func (sm *StateMachine) applyRevealOutcome(card *models.Card) {
	room := sm.game.Room
	team := room.CurrentTeam

	if card.Team == models.TeamTrap {
		sm.finishGame(team.Other())
		return
	}
	for _, t := range []models.Team{team, team.Other()} {
		if room.UnrevealedCount(t) == 0 {
			sm.finishGame(t)
			return
		}
	}

	remaining := *room.RemainingGuesses - 1
	if card.Team != team || remaining <= 0 {
		sm.switchTurn()
		return
	}
	room.RemainingGuesses = &remaining
}

// finishGame declares winner and stops the clock.
func (sm *StateMachine) finishGame(winner models.Team) {
	room := sm.game.Room
	room.GameOver = true
	room.Winner = winner
	room.CurrentClue = nil
	room.RemainingGuesses = nil
	room.TurnStartTime = nil
	room.ClearVotes()
	sm.game.addSystemMessage(fmt.Sprintf("%s team wins!", winner))
	sm.game.evaluatePause()
}

// switchTurn hands play to the other team. The incoming team may be paused
// straight away, in which case its timer does not start.
func (sm *StateMachine) switchTurn() {
	room := sm.game.Room
	now := sm.game.now()
	room.CurrentTeam = room.CurrentTeam.Other()
	room.CurrentClue = nil
	room.RemainingGuesses = nil
	room.ClearVotes()
	room.Turn++
	room.TurnStartTime = &now
	sm.game.evaluatePause()
}

// endTurn passes the turn, also while paused. Members of the active team may
// do so at any time; anyone else only after the timer ran out, which never
// happens during a pause.
func (sm *StateMachine) endTurn(actor *models.Player, in models.EndTurn) error {
	gs := sm.game
	room := gs.Room
	switch {
	case !room.GameStarted:
		return ErrGameNotStarted
	case room.GameOver:
		return ErrGameOver
	}
	if in.Turn != nil && *in.Turn != room.Turn {
		return ErrStaleTurn
	}
	onTeam := actor.Team == room.CurrentTeam && actor.Role.IsValid()
	if !onTeam && !gs.timerExpired() {
		return ErrTimerRunning
	}

	gs.addSystemMessage(fmt.Sprintf("%s ended the %s team's turn", actor.Name, room.CurrentTeam))
	sm.switchTurn()
	return nil
}

func (sm *StateMachine) endGame(actor *models.Player) error {
	gs := sm.game
	room := gs.Room
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if !room.GameStarted {
		return ErrGameNotStarted
	}

	room.GameStarted = false
	room.GameOver = false
	room.Winner = models.TeamNone
	room.Board = nil
	room.CurrentClue = nil
	room.RemainingGuesses = nil
	room.TurnStartTime = nil
	gs.clearPause()
	for _, p := range room.Players {
		p.MakeSpectator()
	}
	gs.addSystemMessage("The owner ended the game")
	return nil
}

func (sm *StateMachine) rematch(ctx context.Context, actor *models.Player) error {
	gs := sm.game
	room := gs.Room
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if !room.GameOver {
		return ErrGameNotOver
	}
	if !TeamsAreReady(room.OrderedPlayers()) {
		return ErrTeamsNotReady
	}
	startingTeam := RandomTeam(gs.rng)
	board, err := sm.newBoard(ctx, startingTeam)
	if err != nil {
		return err
	}

	sm.beginGame(board, startingTeam)
	room.Messages = make([]models.ChatMessage, 0)
	gs.evaluatePause()
	return nil
}

func (sm *StateMachine) resumeGame(actor *models.Player) error {
	gs := sm.game
	room := gs.Room
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if !room.GameStarted {
		return ErrGameNotStarted
	}
	if room.GameOver {
		return ErrGameOver
	}
	if !room.Paused {
		return ErrNotPaused
	}
	_, clueGivers, guessers := gs.teamMembers(room.PausedForTeam)
	if clueGivers == 0 || guessers == 0 {
		return ErrResumeConditions
	}
	gs.resume()
	return nil
}
