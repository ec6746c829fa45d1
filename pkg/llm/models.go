package llm

// Model is an entry of the model registry. ID is what clients send, APIIdentifier is what
// the backend receives.
type Model struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	APIIdentifier string `json:"apiIdentifier"`
	Description   string `json:"description"`
}

var DefaultModels = []Model{
	{
		ID:            "gpt-4o-mini",
		Label:         "GPT 4o mini",
		APIIdentifier: "gpt-4o-mini",
		Description:   "Small model for fast, lightweight tasks",
	},
	{
		ID:            "gpt-4o",
		Label:         "GPT 4o",
		APIIdentifier: "gpt-4o",
		Description:   "For complex, multi-step tasks",
	},
}

type Registry struct {
	models []Model
}

func NewRegistry(models ...Model) *Registry {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Registry{models: models}
}

func (r *Registry) Find(id string) (Model, bool) {
	for _, m := range r.models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func (r *Registry) All() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}
