package tools

import (
	"ai-chat-be/pkg/llm"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type weatherArgs struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type createDocumentArgs struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type updateDocumentArgs struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type requestSuggestionsArgs struct {
	DocumentID string `json:"documentId"`
}

var kindEnum = []string{"text", "code", "image"}

var definitions = []llm.Tool{
	{
		Name:        GetWeather,
		Description: "Get the current weather at a location",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"latitude":  {Type: jsonschema.Number},
				"longitude": {Type: jsonschema.Number},
			},
			Required: []string{"latitude", "longitude"},
		},
	},
	{
		Name: CreateDocument,
		Description: "Create a document for a writing or content creation activities like image generation. " +
			"This tool will call other functions that will generate the contents of the document based on the title and kind.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"title": {Type: jsonschema.String},
				"kind":  {Type: jsonschema.String, Enum: kindEnum},
			},
			Required: []string{"title", "kind"},
		},
	},
	{
		Name: UpdateDocument,
		Description: "Update an existing document with new content. " +
			"This tool will call other functions that will generate the contents of the document based on the title and kind.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"id":    {Type: jsonschema.String},
				"title": {Type: jsonschema.String},
				"kind":  {Type: jsonschema.String, Enum: kindEnum},
			},
			Required: []string{"id", "title", "kind"},
		},
	},
	{
		Name: RequestSuggestions,
		Description: "Request suggestions for a document. " +
			"This tool will call other functions that will generate suggestions based on the document content.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"documentId": {Type: jsonschema.String},
			},
			Required: []string{"documentId"},
		},
	},
}

// Definitions lists the tools the model may call. getWeather is left out when no weather
// source is configured.
func (s *Session) Definitions() []llm.Tool {
	out := make([]llm.Tool, 0, len(definitions))
	for _, d := range definitions {
		if d.Name == GetWeather && s.c.weather == nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
