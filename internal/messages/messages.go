// Package messages is the catalogue of user-facing text.
package messages

import (
	"fmt"
	"math/rand"

	"github.com/ivlev/attnmap/internal/apperr"
)

const siteURL = "https://www.visualeyes.design"

// Alert is a titled message shown for a terminal failure.
type Alert struct {
	Title string
	Body  string
}

var alerts = map[apperr.Kind]Alert{
	apperr.NoSelection: {
		Title: "🥺 Nothing selected",
		Body:  "You must select at least one artboard.",
	},
	apperr.WrongSelectionType: {
		Title: "🤓 Not an artboard",
		Body:  "Please select an artboard.",
	},
	apperr.ExportUnavailable: {
		Title: "😱 Oops!",
		Body:  "The artboard could not be exported.",
	},
	apperr.BadRequest: {
		Title: "😱 Oops!",
		Body:  "We are deeply sorry, but something went terribly wrong!",
	},
	apperr.InvalidCredentials: {
		Title: "😓 Invalid API key",
		Body:  "If you have a valid API key, you can set it with -set-api-key.\n\nYou can claim a valid token at " + siteURL,
	},
	apperr.PaymentRequired: {
		Title: "🛫 Upgrade your account",
		Body:  "In order to access this feature you need to upgrade your account at " + siteURL,
	},
	apperr.QuotaExceeded: {
		Title: "🚨 Request limit",
		Body:  "Your heatmaps limit has been exceeded.",
	},
	apperr.ServiceUnavailable: {
		Title: "🚧 Under maintenance",
		Body:  "Our elves are working hard to update our services. We will be online really soon!",
	},
	apperr.UnknownServiceError: {
		Title: "😱 Oops!",
		Body:  "We are deeply sorry, but something went terribly wrong!",
	},
	apperr.MalformedResponse: {
		Title: "😱 Oops!",
		Body:  "The prediction service sent a response we could not read.",
	},
	apperr.InconsistentServerState: {
		Title: "😱 Oops!",
		Body:  "The prediction service returned scores for areas we did not send.",
	},
	apperr.InvocationInFlight: {
		Title: "⏳ Please wait",
		Body:  "A heatmap is already being generated for this document.",
	},
	apperr.MissingCredentials: {
		Title: "✋ API key needed",
		Body:  "Please enter your API key first.",
	},
	apperr.TransportFailure: {
		Title: "📡 Connection problem",
		Body:  "The prediction service could not be reached.",
	},
	apperr.RenderUnavailable: {
		Title: "😱 Oops!",
		Body:  "The heatmap could not be added to the artboard.",
	},
}

// ForKind returns the alert for a terminal failure kind.
func ForKind(kind apperr.Kind) Alert {
	if a, ok := alerts[kind]; ok {
		return a
	}
	return alerts[apperr.UnknownServiceError]
}

// Rejection is the notice shown once per rejection reason in an invocation.
func Rejection(reason apperr.Kind, minWidth, minHeight float64) string {
	switch reason {
	case apperr.TooSmall:
		return fmt.Sprintf("👎 One of your rectangles was not big enough (minimum %gx%g)", minWidth, minHeight)
	case apperr.OutOfBounds:
		return "😱 One of your rectangles is outside the current artboard."
	default:
		return "One of your rectangles was skipped: " + reason.String()
	}
}

const (
	Waiting          = "🧠 Please wait for the magic..."
	LargeImage       = "🏃‍♂️ Your image was pretty large. The prediction could take a little longer than usual."
	Success          = "🎉 Your heatmap is ready!"
	SuccessAOIPrompt = "🦸 You can impress your client even more with Areas of Interest..."
	APIKeySaved      = "🙌 Your new API key has been saved."
	APIKeyCancel     = "🏃 Keep using your old API key."
	OnboardingEnd    = "🚢 Re-run the command to see the magic!"
)

// NoAOI is shown when no marker survived validation.
func NoAOI(tag string) string {
	return fmt.Sprintf("🧐 Create at least one rectangle named %q to get per-area scores.", tag)
}

// Credits reports the remaining credits.
func Credits(n int) string {
	return fmt.Sprintf("🎉 You have %d credits left.", n)
}

// Onboarding is shown after the first API key is saved.
func Onboarding(tag string) string {
	return "🔥 How to generate your attention heatmap:\n" +
		"\t1. Select an artboard\n" +
		"\t2. Run the command\n\n" +
		"📦 How to create Areas of Interest:\n" +
		fmt.Sprintf("\t1. Create a rectangle named %s\n", tag) +
		"\t2. Select the artboard\n" +
		"\t3. Run the command\n\n" +
		"🔗 Learn more: " + siteURL + "/learn"
}

var tips = []string{
	"The AOI rectangle should be placed at the top level of the artboard...",
	"Create Areas of Interest by drawing a rectangle named AOI inside your artboard...",
	"The attention is higher on the red areas...",
	"A/B testing small UI tweaks is a common use case of attention heatmaps...",
}

var thinkEmojis = []string{"🧠", "🤔", "💡", "🤓"}

// Tip returns a random usage tip.
func Tip(r *rand.Rand) string {
	return thinkEmojis[r.Intn(len(thinkEmojis))] + " TIP: " + tips[r.Intn(len(tips))]
}
