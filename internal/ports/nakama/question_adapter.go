package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

const (
	questionCollection = "olympia_questions"
	warmUpPacksKey     = "warmup_packs"
	obstacleKey        = "obstacle"
	accelerationKey    = "acceleration"
	finishBankKey      = "finish_bank"
)

// NakamaQuestionBank implements ports.QuestionBank on Nakama storage. The
// operator seeds the question documents out of band; the match only reads
// them, except the finish bank where drawn entries are marked used so they
// are not reissued within the match.
type NakamaQuestionBank struct {
	nk runtime.NakamaModule
}

func NewNakamaQuestionBank(nk runtime.NakamaModule) *NakamaQuestionBank {
	return &NakamaQuestionBank{nk: nk}
}

type warmUpPackDoc struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Questions []domain.WarmUpQuestion `json:"questions"`
}

type obstacleDoc struct {
	ImageURL string `json:"image_url"`
	Keyword  string `json:"keyword"`
	Rows     []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"rows"`
}

type accelerationDoc struct {
	Questions []domain.AccelerationQuestion `json:"questions"`
}

type finishBankEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
	Answer    string `json:"answer"`
	Used      bool   `json:"used"`
}

func (b *NakamaQuestionBank) readDoc(ctx context.Context, key string, out interface{}) error {
	objects, err := b.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: questionCollection,
		Key:        key,
	}})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("question document %s is not configured", key)
	}
	if err := json.Unmarshal([]byte(objects[0].Value), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (b *NakamaQuestionBank) WarmUpPack(ctx context.Context, packID string) (ports.WarmUpPack, error) {
	var docs []warmUpPackDoc
	if err := b.readDoc(ctx, warmUpPacksKey, &docs); err != nil {
		return ports.WarmUpPack{}, err
	}
	for _, doc := range docs {
		if doc.ID == packID {
			return ports.WarmUpPack{ID: doc.ID, Name: doc.Name, Questions: doc.Questions}, nil
		}
	}
	return ports.WarmUpPack{}, fmt.Errorf("warm-up pack %s is not configured", packID)
}

func (b *NakamaQuestionBank) ObstacleResource(ctx context.Context) (ports.ObstacleResource, error) {
	var doc obstacleDoc
	if err := b.readDoc(ctx, obstacleKey, &doc); err != nil {
		return ports.ObstacleResource{}, err
	}
	if len(doc.Rows) != domain.ObstacleRows {
		return ports.ObstacleResource{}, fmt.Errorf("obstacle resource has %d rows, want %d", len(doc.Rows), domain.ObstacleRows)
	}

	res := ports.ObstacleResource{ImageURL: doc.ImageURL, Keyword: doc.Keyword}
	for i, row := range doc.Rows {
		res.Rows[i] = ports.ObstacleRowSource{Question: row.Question, Answer: row.Answer}
	}
	return res, nil
}

func (b *NakamaQuestionBank) AccelerationResource(ctx context.Context) (ports.AccelerationResource, error) {
	var doc accelerationDoc
	if err := b.readDoc(ctx, accelerationKey, &doc); err != nil {
		return ports.AccelerationResource{}, err
	}
	return ports.AccelerationResource{Questions: doc.Questions}, nil
}

func (b *NakamaQuestionBank) DrawFinishQuestions(ctx context.Context, n int) ([]ports.FinishBankQuestion, error) {
	var entries []finishBankEntry
	if err := b.readDoc(ctx, finishBankKey, &entries); err != nil {
		return nil, err
	}

	drawn := make([]ports.FinishBankQuestion, 0, n)
	for i := range entries {
		if len(drawn) == n {
			break
		}
		if entries[i].Used {
			continue
		}
		entries[i].Used = true
		drawn = append(drawn, ports.FinishBankQuestion{
			ID:        entries[i].ID,
			Text:      entries[i].Text,
			MediaURL:  entries[i].MediaURL,
			MediaType: entries[i].MediaType,
			Answer:    entries[i].Answer,
		})
	}
	if len(drawn) < n {
		return nil, fmt.Errorf("finish bank has only %d unused questions, want %d", len(drawn), n)
	}

	value, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal finish bank: %w", err)
	}
	if _, err := b.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      questionCollection,
		Key:             finishBankKey,
		Value:           string(value),
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}); err != nil {
		return nil, fmt.Errorf("failed to mark drawn questions used: %w", err)
	}
	return drawn, nil
}
