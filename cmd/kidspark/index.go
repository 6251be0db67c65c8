package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/retrieval"
	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

var indexCmd = &cobra.Command{
	Use:   "index <content.json>",
	Short: "Load a content library file into the vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		return indexFile(cmd.Context(), a, args[0])
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

// contentItem is one library entry in the index file.
type contentItem struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// indexFile embeds and stores every item in the file, grouped by
// collection.
func indexFile(ctx context.Context, a *app, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading content file: %w", err)
	}
	var items []contentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parsing content file: %w", err)
	}

	byCollection := make(map[retrieval.Collection][]contentItem)
	for _, item := range items {
		c := retrieval.Collection(item.Collection)
		switch c {
		case retrieval.CollectionActivities, retrieval.CollectionStories, retrieval.CollectionKnowledge:
		default:
			return fmt.Errorf("item %q: unknown collection %q", item.ID, item.Collection)
		}
		byCollection[c] = append(byCollection[c], item)
	}

	for collection, group := range byCollection {
		docs := make([]vectorstore.Document, 0, len(group))
		for _, item := range group {
			meta := item.Metadata
			if meta == nil {
				meta = map[string]interface{}{}
			}
			if _, ok := meta["safety_tag"]; !ok {
				meta["safety_tag"] = "safe"
			}
			docs = append(docs, vectorstore.Document{
				ID:       item.ID,
				Content:  item.Content,
				Metadata: meta,
			})
		}
		if err := a.retrieval.AddDocuments(ctx, collection, docs); err != nil {
			return err
		}
		a.logger.Info("indexed collection",
			zap.String("collection", string(collection)),
			zap.Int("documents", len(docs)))
	}
	return nil
}
