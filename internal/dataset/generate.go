package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"
)

// DefaultGenerateSize and DefaultGenerateSeed describe the stock synthetic corpus.
const (
	DefaultGenerateSize = 120
	DefaultGenerateSeed = 2025
)

var (
	courts = []string{
		"Tribunal Regional Federal da 1a Regiao",
		"Tribunal Regional do Trabalho da 2a Regiao",
		"Superior Tribunal de Justica",
		"Tribunal de Justica de Sao Paulo",
		"Juizado Especial Federal de Minas Gerais",
	}
	topics = []string{
		"direito civil",
		"direito penal",
		"direito tributario",
		"direito administrativo",
		"direito constitucional",
	}
	documentTypes = []string{
		"sentenca",
		"acordao",
		"peticao",
		"recurso ordinario",
		"mandado de seguranca",
	}
	legalReferences = []string{
		"artigo 5 da Constituicao Federal",
		"artigo 37 da Constituicao Federal",
		"codigo de processo civil",
		"codigo de processo penal",
		"estatuto da crianca e do adolescente",
	}
)

// GeneratedDocument is the JSONL shape written by Generate.
type GeneratedDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Court           string `json:"court"`
	Date            string `json:"date"`
	ClickCount      int    `json:"click_count"`
	ClickPosition   int    `json:"click_position"`
	ClickImpression int    `json:"click_impression"`
	ClickTimestamp  string `json:"click_timestamp"`
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Size int
	Seed int64
	// Reference anchors generated dates and click timestamps.
	Reference time.Time
}

// Generate writes a deterministic synthetic corpus of legal documents to w. The same
// options always produce the same bytes.
func Generate(w io.Writer, opts GenerateOptions) (int, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultGenerateSize
	}
	if opts.Reference.IsZero() {
		opts.Reference = time.Now().UTC()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i := 1; i <= opts.Size; i++ {
		if err := enc.Encode(generateDocument(rng, i, opts.Reference)); err != nil {
			return i - 1, fmt.Errorf("failed to write document %d: %w", i, err)
		}
	}
	return opts.Size, nil
}

func generateDocument(rng *rand.Rand, counter int, ref time.Time) GeneratedDocument {
	topic := topics[rng.Intn(len(topics))]
	docType := documentTypes[rng.Intn(len(documentTypes))]
	reference := legalReferences[rng.Intn(len(legalReferences))]

	// Lower positions get more impressions and a higher click-through rate.
	position := rng.Intn(20)
	impressions := 20 + rng.Intn(400)/(position+1)
	ctr := 0.5/float64(position+1) + rng.Float64()*0.05
	clicks := int(float64(impressions) * ctr)

	date := ref.AddDate(0, 0, -rng.Intn(365*10))
	clickedAt := ref.Add(-time.Duration(rng.Intn(24*60)) * time.Hour)

	return GeneratedDocument{
		ID:              fmt.Sprintf("doc-%08x", rng.Uint32()),
		Title:           fmt.Sprintf("%s sobre %s #%03d", titleCase(docType), topic, counter),
		Content:         buildContent(topic, docType, reference),
		Court:           courts[rng.Intn(len(courts))],
		Date:            date.Format("2006-01-02"),
		ClickCount:      clicks,
		ClickPosition:   position,
		ClickImpression: impressions,
		ClickTimestamp:  clickedAt.Format(time.RFC3339),
	}
}

func buildContent(topic, docType, reference string) string {
	return strings.Join([]string{
		fmt.Sprintf("Este documento aborda o tema de %s em formato de %s.", topic, docType),
		fmt.Sprintf("O texto examina fundamentos constitucionais, com destaque para %s.", reference),
		"Sao apresentados argumentos, fatos e referencias jurisprudenciais que sustentam o pedido principal.",
	}, "\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
