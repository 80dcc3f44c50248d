package orchestration

import (
	"fmt"
	"strings"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// SystemPrompt is the instruction installed on the model session. It
// frames the agent's job and the tool protocol.
const SystemPrompt = `You are the in-cabin ambience agent of an electric vehicle.
Given a driving environment snapshot, compose a cohesive cabin ambience:
music, ambient lighting, scent, seat massage and a short spoken narration.

Rules:
- Use the provided tools to configure each part of the ambience.
- Respect the driving context: calmer choices at night, in bad weather,
  or when the driver is tired or stressed; livelier choices for a happy
  solo drive in good conditions.
- Keep the narration under 500 characters and in the driver's language.
- After your tool calls, reply with one short sentence summarizing the
  ambience you created.`

// buildInitialPrompt renders the environment snapshot for the first
// turn of a run.
func buildInitialPrompt(env ambience.Environment) string {
	var b strings.Builder
	b.WriteString("Create a cabin ambience for the current drive.\n\n")
	b.WriteString("Environment:\n")
	fmt.Fprintf(&b, "- location: %s", env.GpsTag)
	if env.Location != nil {
		if env.Location.RoadName != "" {
			fmt.Fprintf(&b, " (%s", env.Location.RoadName)
			if env.Location.CityName != "" {
				fmt.Fprintf(&b, ", %s", env.Location.CityName)
			}
			b.WriteString(")")
		} else if env.Location.CityName != "" {
			fmt.Fprintf(&b, " (%s)", env.Location.CityName)
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- weather: %s\n", env.Weather)
	fmt.Fprintf(&b, "- speed: %.0f km/h\n", env.Speed)
	fmt.Fprintf(&b, "- time of day: %s\n", env.TimeOfDay)
	fmt.Fprintf(&b, "- route type: %s\n", env.RouteType)
	fmt.Fprintf(&b, "- driver mood: %s\n", env.UserMood)
	fmt.Fprintf(&b, "- passengers: %d\n", env.PassengerCount)
	if env.Biometrics != nil {
		fmt.Fprintf(&b, "- driver heart rate: %d bpm, stress %.1f, fatigue %.1f\n",
			env.Biometrics.HeartRate, env.Biometrics.StressLevel, env.Biometrics.FatigueLevel)
	}

	b.WriteString("\nHints:\n")
	switch {
	case env.NeedsSoothingAmbience():
		b.WriteString("- the driver needs a soothing, low-stimulation ambience\n")
	case env.SuitsEnergeticAmbience():
		b.WriteString("- an energetic ambience suits this drive\n")
	default:
		b.WriteString("- aim for a balanced, comfortable ambience\n")
	}
	if env.IsHighSpeedScenario() {
		b.WriteString("- high-speed context: avoid distracting light effects and intense massage\n")
	}
	if env.IsSoloDriving() {
		b.WriteString("- the driver is alone; address them directly in the narration\n")
	}
	return b.String()
}

// buildContinuePrompt instructs the model to wrap up after a turn that
// ended in pure tool invocation.
func buildContinuePrompt() string {
	return "All requested tool calls have completed with the results above. " +
		"Conclude now: reply with one short summary sentence for the driver. " +
		"Do not call any more tools."
}
