package vote

import (
	"time"

	"github.com/google/uuid"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Think advances the ballot by one tick. It must run once per server frame.
func (c *Controller) Think() {
	now := c.clock.Now()

	if c.activeIssue == noActiveIssue {
		if now < c.nextThink {
			return
		}
		c.nextThink = now + idleThinkInterval
		for _, is := range c.issues {
			is.lockouts.prune(now)
		}
		return
	}

	issue := c.issues[c.activeIssue]
	if c.acceptingVotes.HasStarted() {
		c.evaluate(issue, now)
	}

	if c.executeCommand.IsElapsed(now) {
		c.executeCommand.Invalidate()
		c.log.Info().Str("issue", issue.TypeString()).Str("details", issue.Details()).Msg("executing passed vote")
		issue.ExecuteCommand()
	}
	if c.resetVote.IsElapsed(now) {
		c.ResetData()
	}
}

func (c *Controller) evaluate(issue *Issue, now time.Duration) {
	required := issue.GetVotesRequiredToPass()
	elapsed := c.acceptingVotes.IsElapsed(now)
	total := c.totalVotes()

	if c.isYesNo {
		yes := c.tally[OptionYes]
		remaining := max(c.potentialVotes-total, 0)
		switch {
		case yes >= required:
			c.pass(issue, OptionYes, now)
		case issue.FailsWhenUnreachable() && yes+remaining < required:
			c.fail(issue, FailYesMustExceedNo, now)
		case elapsed && total < required:
			c.fail(issue, FailQuorumFailure, now)
		case elapsed:
			c.fail(issue, FailYesMustExceedNo, now)
		}
		return
	}

	winner := c.GetWinningVoteOption()
	switch {
	case c.tally[winner] >= required:
		c.pass(issue, winner, now)
	case elapsed && total > 0:
		c.pass(issue, winner, now)
	case elapsed:
		c.fail(issue, FailQuorumFailure, now)
	}
}

func (c *Controller) pass(issue *Issue, winner int, now time.Duration) {
	issue.winningOption = winner
	c.snapshot(issue)
	c.acceptingVotes.Invalidate()
	c.state = StatePassed

	c.executeCommand.Start(now, c.settings.CommandDelay)
	c.resetVote.Start(now, max(ResetDelay, c.settings.CommandDelay))

	if c.callerSlot != model.DedicatedServerSlot {
		c.players.SetNextVoteCreation(c.callerSlot, 0)
	}

	details := issue.GetDetailsString()
	if !c.isYesNo {
		details = c.optionName(winner)
	}
	c.gamelog.Printf("Vote succeeded \"%s %s\"", issue.TypeString(), details)
	c.log.Info().
		Str("issue", issue.TypeString()).
		Str("details", details).
		Ints("tally", c.tally[:]).
		Msg("vote passed")

	c.messenger.Send(model.ClientMessage{
		Type:          model.MsgVotePass,
		Team:          c.teamRestriction,
		DisplayString: issue.GetVotePassedString(),
		Details:       details,
	}, c.audience())

	c.record(issue, true, FailNone, now)
}

func (c *Controller) fail(issue *Issue, reason FailReason, now time.Duration) {
	c.snapshot(issue)
	c.acceptingVotes.Invalidate()
	c.state = StateFailed
	c.failReason = reason

	issue.OnVoteFailed()
	c.resetVote.Start(now, ResetDelay)

	c.gamelog.Printf("Vote failed \"%s %s\" with code %d", issue.TypeString(), issue.GetDetailsString(), int(reason))
	c.log.Info().
		Str("issue", issue.TypeString()).
		Str("reason", reason.String()).
		Ints("tally", c.tally[:]).
		Msg("vote failed")

	c.sendVoteFailed(reason)
	c.record(issue, false, reason, now)
}

// EndVoteImmediately fails an open ballot with a quorum failure and returns
// the controller to idle. Ballots already resolved finish their cycle.
// An interrupted ballot was never decided by the voters, so it leaves no
// failure lockout and the same issue can be called again right away.
func (c *Controller) EndVoteImmediately() {
	if c.activeIssue == noActiveIssue || c.state != StateVoting {
		return
	}
	issue := c.issues[c.activeIssue]
	now := c.clock.Now()

	c.snapshot(issue)
	c.gamelog.Printf("Vote failed \"%s %s\" with code %d", issue.TypeString(), issue.GetDetailsString(), int(FailQuorumFailure))
	c.log.Info().Str("issue", issue.TypeString()).Msg("vote ended early")
	c.sendVoteFailed(FailQuorumFailure)
	c.record(issue, false, FailQuorumFailure, now)
	c.ResetData()
}

// GetWinningVoteOption returns the option with the most votes, the first one
// on ties. Yes/no ballots return OptionYes only when yes leads.
func (c *Controller) GetWinningVoteOption() int {
	if c.isYesNo {
		if c.tally[OptionYes] > c.tally[OptionNo] {
			return OptionYes
		}
		return OptionNo
	}
	winner := 0
	for i := 1; i < len(c.tally); i++ {
		if c.tally[i] > c.tally[winner] {
			winner = i
		}
	}
	return winner
}

// sendVoteFailed broadcasts a ballot failure to everyone who saw it start.
func (c *Controller) sendVoteFailed(reason FailReason) {
	c.messenger.Send(model.ClientMessage{
		Type:       model.MsgVoteFailed,
		Team:       c.teamRestriction,
		Reason:     reason.String(),
		ReasonCode: int(reason),
	}, c.audience())
}

func (c *Controller) snapshot(issue *Issue) {
	issue.SetYesNoVoteCount(c.tally[OptionYes], c.tally[OptionNo], c.potentialVotes)
}

func (c *Controller) record(issue *Issue, passed bool, reason FailReason, now time.Duration) {
	if c.recorder == nil {
		return
	}
	rec := model.BallotRecord{
		ID:              uuid.NewString(),
		Controller:      c.name,
		IssueType:       issue.TypeString(),
		Details:         issue.Details(),
		CallerSlot:      c.callerSlot,
		TeamRestriction: c.teamRestriction,
		YesVotes:        c.tally[OptionYes],
		NoVotes:         c.tally[OptionNo],
		PotentialVotes:  c.potentialVotes,
		WinningOption:   issue.winningOption,
		Passed:          passed,
		StartedAt:       c.startedAt,
		ResolvedAt:      now,
	}
	if !passed {
		rec.FailReason = reason.String()
	}
	if c.callerSlot == model.DedicatedServerSlot {
		rec.CallerName = "Console"
	} else if p, ok := c.players.BySlot(c.callerSlot); ok {
		rec.CallerName = p.Name
	}
	c.recorder.RecordBallot(rec)
}
