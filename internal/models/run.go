package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunKind names the analysis a run recorded.
type RunKind string

const (
	RunPreprocess    RunKind = "preprocess"
	RunWordFrequency RunKind = "word_frequency"
	RunLDA           RunKind = "lda"
	RunKeywordEdit   RunKind = "keyword_edit"
)

// Run is a single analysis call stored in MongoDB.
type Run struct {
	ID            primitive.ObjectID `json:"id"              bson:"_id,omitempty"`
	RunID         string             `json:"run_id"          bson:"run_id"`
	SessionID     string             `json:"session_id"      bson:"session_id"`
	Kind          RunKind            `json:"kind"            bson:"kind"`
	Dataset       string             `json:"dataset"         bson:"dataset"`
	Column        string             `json:"column"          bson:"column"`
	Params        map[string]any     `json:"params"          bson:"params"`
	OptimalTopics int                `json:"optimal_topics"  bson:"optimal_topics,omitempty"`
	TopicCount    int                `json:"topic_count"     bson:"topic_count,omitempty"`
	Topics        []RunTopic         `json:"topics"          bson:"topics,omitempty"`
	ResultURL     string             `json:"result_url"      bson:"result_url,omitempty"`
	ObjectKey     string             `json:"object_key"      bson:"object_key,omitempty"`
	CreatedAt     time.Time          `json:"created_at"      bson:"created_at"`
}

// RunTopic keeps the raw topic string of an LDA run.
type RunTopic struct {
	ID    int    `json:"id"    bson:"id"`
	Words string `json:"words" bson:"words"`
}
