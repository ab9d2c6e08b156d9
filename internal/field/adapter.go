package field

// Topic is the externally-owned forum record as this service sees it: an
// ID plus an opaque bag of custom fields. The forum owns the type; we do
// not extend it.
type Topic struct {
	ID           string
	CustomFields map[string]string
}

// TopicAdapter adds typed accessors for the two slots on top of a Topic
// without modifying the foreign type.
type TopicAdapter struct {
	topic *Topic
	cfg   Config
}

// NewTopicAdapter wraps an externally-owned topic record.
func NewTopicAdapter(topic *Topic, cfg Config) *TopicAdapter {
	if topic.CustomFields == nil {
		topic.CustomFields = map[string]string{}
	}
	return &TopicAdapter{topic: topic, cfg: cfg}
}

// Reference returns the committed process reference, or empty when unset.
func (a *TopicAdapter) Reference() string {
	return a.topic.CustomFields[a.cfg.PrimaryName]
}

// SetReference writes the process reference slot. Empty clears it.
func (a *TopicAdapter) SetReference(v string) {
	a.set(a.cfg.PrimaryName, v)
}

// Preview returns the committed preview payload, or empty when unset.
func (a *TopicAdapter) Preview() string {
	return a.topic.CustomFields[a.cfg.PreviewName]
}

// SetPreview writes the preview slot. Empty clears it.
func (a *TopicAdapter) SetPreview(v string) {
	a.set(a.cfg.PreviewName, v)
}

// Values returns both slots as a committed snapshot.
func (a *TopicAdapter) Values() Values {
	return Values{Primary: a.Reference(), Preview: a.Preview()}
}

// Apply copies a committed snapshot onto the wrapped topic.
func (a *TopicAdapter) Apply(v Values) {
	a.SetReference(v.Primary)
	a.SetPreview(v.Preview)
}

func (a *TopicAdapter) set(name, v string) {
	if v == "" {
		delete(a.topic.CustomFields, name)
		return
	}
	a.topic.CustomFields[name] = v
}
