package notifier

import (
	"context"
	"sync"

	"evalreport-go/internal/aggregator"
	"evalreport-go/internal/logger"
	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// Store is the persistence the notifier reads counts from and writes flags to.
type Store interface {
	GetTraining(ctx context.Context, id string) (*types.Training, error)
	ListResponses(ctx context.Context, trainingID string) ([]types.Response, error)
	GetSettings(ctx context.Context) (types.Settings, error)
	MarkReported(ctx context.Context, trainingID, flag string) error
}

type Notifier struct {
	store   Store
	sender  Sender
	baseURL string
	log     *logger.Logger

	// mu serializes the flag check and the flag write within this process.
	mu sync.Mutex
}

func New(store Store, sender Sender, baseURL string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.New()
	}
	return &Notifier{store: store, sender: sender, baseURL: baseURL, log: log.Component("notifier")}
}

// OnResponses re-counts each touched group and sends its summary when the
// count lands exactly on a configured target. Failures are logged only.
// It returns the flags that were sent.
func (n *Notifier) OnResponses(ctx context.Context, trainingID string, kind types.ResponseType, groupKeys []string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	log := n.log.WithField("training_id", trainingID)
	t, err := n.store.GetTraining(ctx, trainingID)
	if err != nil {
		log.WithError(err).Warn("notify: load training")
		return nil
	}
	if len(t.Targets) == 0 {
		return nil
	}
	responses, err := n.store.ListResponses(ctx, trainingID)
	if err != nil {
		log.WithError(err).Warn("notify: load responses")
		return nil
	}
	settings, err := n.store.GetSettings(ctx)
	if err != nil {
		log.WithError(err).Warn("notify: load settings, using empty header/footer")
		settings = types.Settings{}
	}

	groups := session.Resolve(t, responses, kind, types.RoleSuperAdmin)
	questions := t.Questions(kind)

	var sent []string
	seen := map[string]bool{}
	for _, key := range groupKeys {
		if seen[key] {
			continue
		}
		seen[key] = true

		g, ok := session.FindGroup(groups, key)
		if !ok {
			continue
		}
		count := g.Count()
		if !ShouldNotify(t.Targets, t.ReportedTargets, key, count) {
			continue
		}
		flag := FlagKey(key, count)
		glog := log.WithField("group", key).WithField("count", count)

		dest := Destination(t, g)
		if dest == "" {
			glog.Warn("notify: no destination number, skipping")
			continue
		}
		msg := BuildMessage(MessageInput{
			Training: t,
			Group:    g,
			Stats:    aggregator.Aggregate(g.Responses, questions),
			Settings: settings,
			Link:     CommentsLink(n.baseURL, t.ID, kind, key),
		})
		if err := n.sender.Send(ctx, dest, msg); err != nil {
			glog.WithError(err).Error("notify: delivery failed, target left unreported")
			continue
		}
		if err := n.store.MarkReported(ctx, trainingID, flag); err != nil {
			glog.WithError(err).Error("notify: persisting reported flag")
			continue
		}
		if t.ReportedTargets == nil {
			t.ReportedTargets = map[string]bool{}
		}
		t.ReportedTargets[flag] = true
		glog.Info("notify: summary sent")
		sent = append(sent, flag)
	}
	return sent
}
