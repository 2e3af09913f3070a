package notifier

import (
	"fmt"
	"net/url"
	"strings"

	"evalreport-go/internal/aggregator"
	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// maxComments bounds the quotes included in one message.
const maxComments = 2

type MessageInput struct {
	Training *types.Training
	Group    session.Group
	Stats    aggregator.GroupStats
	Settings types.Settings
	Link     string
}

// BuildMessage renders the WhatsApp summary of one group.
func BuildMessage(in MessageInput) string {
	var b strings.Builder
	if h := strings.TrimSpace(in.Settings.MessageHeader); h != "" {
		b.WriteString(h + "\n\n")
	}
	b.WriteString("*Laporan Evaluasi Otomatis*\n")
	fmt.Fprintf(&b, "Pelatihan: %s\n", in.Training.Title)
	if in.Group.Kind == types.ResponseProcess {
		fmt.Fprintf(&b, "Evaluasi: %s\n", session.ProcessGroupName)
	} else {
		fmt.Fprintf(&b, "Fasilitator: %s\n", in.Group.DisplayName)
		fmt.Fprintf(&b, "Materi: %s\n", in.Group.Subject)
	}
	fmt.Fprintf(&b, "Jumlah responden: %d\n", in.Stats.ResponseCount)

	if len(in.Stats.Questions) > 0 {
		b.WriteString("\nRekapitulasi:\n")
		for i, q := range in.Stats.Questions {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, q.Question.Label, q.Score())
		}
	}
	fmt.Fprintf(&b, "\nRata-rata keseluruhan: *%s*\n", in.Stats.OverallScore())

	if comments := ShortestComments(in.Stats.Comments, maxComments); len(comments) > 0 {
		b.WriteString("\nKomentar peserta:\n")
		for _, c := range comments {
			fmt.Fprintf(&b, "- \"%s\"\n", c)
		}
	}
	if in.Link != "" {
		fmt.Fprintf(&b, "\nLihat komentar lengkap: %s\n", in.Link)
	}
	if f := strings.TrimSpace(in.Settings.MessageFooter); f != "" {
		b.WriteString("\n" + f + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// CommentsLink is the deep link to the live comments view of a group.
func CommentsLink(baseURL, trainingID string, kind types.ResponseType, groupKey string) string {
	if baseURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("group", groupKey)
	return strings.TrimRight(baseURL, "/") + "/trainings/" + url.PathEscape(trainingID) + "/report?" + q.Encode()
}

// Destination returns the phone number a group's summary goes to.
func Destination(t *types.Training, g session.Group) string {
	if g.Kind == types.ResponseProcess {
		return strings.TrimSpace(t.ProcessOrganizer.WhatsappNumber)
	}
	return strings.TrimSpace(g.Facilitator.WhatsappNumber)
}
