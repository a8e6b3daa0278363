package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/workspace"
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Browse flashcard decks",
}

var deckListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List a course's decks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		decks, err := app.Workspace.ListDecks(ctx, course.ID)
		if err != nil {
			return err
		}
		if printJSON(decks) {
			return nil
		}
		for _, d := range decks {
			fmt.Printf("%d\t%-5s\t%s\n", d.ID, d.Type, d.Name)
		}
		return nil
	},
}

var deckCardsCmd = &cobra.Command{
	Use:   "cards <deck-id>",
	Short: "List a deck's cards with their review counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		cards, err := app.Workspace.ListCards(ctx, id)
		if err != nil {
			return err
		}
		if printJSON(cards) {
			return nil
		}
		for _, c := range cards {
			fmt.Printf("%d\t%d/%d seen\t%s\n", c.ID, c.Stats.Known, c.Stats.Seen, cardPrompt(c))
		}
		return nil
	},
}

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Review flashcards",
}

var cardReviewCmd = &cobra.Command{
	Use:   "review <card-id> <known|unknown>",
	Short: "Record a self-assessment of a card",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Workspace.ReviewCard(ctx, id, workspace.ReviewAction(args[1]))
		if err != nil {
			return err
		}
		if printJSON(res) {
			return nil
		}
		fmt.Printf("Card %d: %d known, %d unknown\n", res.Card.ID, res.Card.Stats.Known, res.Card.Stats.Unknown)
		if res.Mistake != nil {
			fmt.Printf("Added to mistakes (missed %d times)\n", res.Mistake.WrongCount)
		}
		return nil
	},
}

var cardAnswerCmd = &cobra.Command{
	Use:   "answer <card-id> <option>",
	Short: "Answer a multiple-choice card",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Workspace.SubmitAnswer(ctx, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if printJSON(res) {
			return nil
		}
		if res.IsCorrect {
			fmt.Printf("Correct: %s\n", res.Correct)
		} else {
			fmt.Printf("Wrong: you chose %s, the answer is %s\n", res.Selected, res.Correct)
		}
		if res.Card.Explanation != "" {
			fmt.Println(res.Card.Explanation)
		}
		return nil
	},
}

var mistakeCmd = &cobra.Command{
	Use:   "mistake",
	Short: "Work through the mistakes bank",
}

var mistakeListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List a course's mistakes, most missed first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		cardType, _ := cmd.Flags().GetString("type")
		mistakes, err := app.Workspace.ListMistakes(ctx, course.ID, workspace.MistakeFilter{
			Status:   workspace.MistakeStatus(status),
			CardType: workspace.DeckType(cardType),
		})
		if err != nil {
			return err
		}
		if printJSON(mistakes) {
			return nil
		}
		for _, m := range mistakes {
			fmt.Printf("%d\t%-8s\t%dx\t%s\n", m.ID, m.Status, m.WrongCount, cardPrompt(*m.Card))
		}
		return nil
	},
}

var mistakeMasterCmd = &cobra.Command{
	Use:   "master <mistake-id>",
	Short: "Mark a mistake as mastered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMistakeStatus(cmd, args[0], workspace.MistakeMastered)
	},
}

var mistakeArchiveCmd = &cobra.Command{
	Use:   "archive <mistake-id>",
	Short: "Archive a mistake",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMistakeStatus(cmd, args[0], workspace.MistakeArchived)
	},
}

func setMistakeStatus(cmd *cobra.Command, arg string, status workspace.MistakeStatus) error {
	ctx := cmd.Context()
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	app, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	var ok bool
	if status == workspace.MistakeMastered {
		ok, err = app.Workspace.MarkMistakeMastered(ctx, id)
	} else {
		ok, err = app.Workspace.ArchiveMistake(ctx, id)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mistake %d: %w", id, workspace.ErrNotFound)
	}
	if !printJSON(map[string]any{"id": id, "status": status}) {
		fmt.Printf("Mistake %d %s\n", id, status)
	}
	return nil
}

func cardPrompt(c workspace.Card) string {
	if c.Type == workspace.DeckMCQ {
		return c.Question
	}
	return c.Front
}

func init() {
	deckCmd.AddCommand(deckListCmd, deckCardsCmd)
	cardCmd.AddCommand(cardReviewCmd, cardAnswerCmd)
	mistakeCmd.AddCommand(mistakeListCmd, mistakeMasterCmd, mistakeArchiveCmd)
	mistakeListCmd.Flags().String("status", "", "Filter by status (active, mastered, archived)")
	mistakeListCmd.Flags().String("type", "", "Filter by card type (vocab, mcq)")
}
