package hunt

import "fmt"

// User-facing texts.
const (
	MsgAcknowledge = "Thanks for your submission! Let me take a look!"

	MsgWelcome = "Welcome to my scavenger hunt! It looks like you're submitting for the first time. " +
		"I'm about to take a look at the image you just sent! It might take me a few minutes, " +
		"but I'll look for a few items in the image, and if this image helps me, you'll earn some points! " +
		"At this point in time, we're looking for QR codes!"

	MsgUnlockHint   = "Please use the 'unlock' command to prove you're a human!"
	MsgNoLuck       = "Sorry, no luck!"
	MsgAlreadySeen  = "I've already seen this image!"
	MsgFamiliar     = "Hey, this value looks pretty familiar..."
	MsgNotHelpful   = "Sorry, that's not very helpful."
	MsgSquareish    = "That's... close. You can have one point for a vaguely square-ish object."
	MsgApology      = "Sorry, something went wrong on my end. Please try again later."
	MsgUnlocked     = "Thanks! You can keep submitting images."
	MsgUnlockFailed = "That's not right. Use the 'unlock' command to try again."
	MsgNoChallenge  = "Please use the 'unlock' command to get a challenge first."
)

func debugMessage(summary string) string {
	return "Check this out!\ndebug: " + summary
}

func earnedMessage(points, total int64) string {
	return fmt.Sprintf("You've earned %d points!\nYou now have %d points!\nThank you for your contribution!", points, total)
}

func pointsMessage(points int64) string {
	return fmt.Sprintf("You have %d points!", points)
}

func challengeMessage(question string) string {
	return "Prove you're a human: " + question
}
