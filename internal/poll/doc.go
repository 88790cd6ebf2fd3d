// Package poll implements the poll engine of announcements.
//
// A poll is created together with its announcement, holds at least two
// options and accepts one vote per user. Voting again replaces the previous
// vote; the (poll_id, user_id) unique index of poll_votes backs this with an
// upsert, so concurrent revotes of the same user can never leave two rows.
//
//	eng := poll.New(db)
//	snap, err := eng.CastVote(ctx, optionID, user.ID)
//	for _, o := range snap.Tally.Options {
//		fmt.Println(o.Option.OptionText, o.Count, o.Percent)
//	}
package poll
