// Package e2e provides end-to-end tests over a legal corpus with click signals.
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/hyperjump/rankdaora/internal/dataset"
)

// E2EDocument is a document entry in the E2E corpus with its click profile.
type E2EDocument struct {
	ID          string
	Title       string
	Content     string
	Court       string
	Clicks      int
	Position    int
	Impressions int
	// ClickAge is how long before the reference time the last click happened.
	ClickAge time.Duration
}

// QueryTestCase defines a query and the document ID(s) that must appear in search results.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
	// TiePair holds two documents with identical text that differ only in clicks;
	// the first one is the popular one.
	TiePair [2]string
	// TieQuery matches only the TiePair documents.
	TieQuery string
}

var courts = []string{
	"Superior Tribunal de Justica",
	"Tribunal de Justica de Sao Paulo",
	"Tribunal Regional Federal da 4a Regiao",
	"Tribunal Regional do Trabalho da 2a Regiao",
}

// Each topic carries a signature term that appears in exactly one document.
var topics = []struct {
	title     string
	signature string
}{
	{"Usucapiao extraordinaria de imovel rural", "usucapiao"},
	{"Alimentos gravidicos e presuncao de paternidade", "gravidicos"},
	{"Desconsideracao da personalidade juridica", "desconsideracao"},
	{"Prescricao intercorrente na execucao fiscal", "intercorrente"},
	{"Dano moral por inscricao indevida", "negativacao"},
	{"Habeas corpus e prisao preventiva", "preventiva"},
	{"Guarda compartilhada e convivencia familiar", "compartilhada"},
	{"Responsabilidade civil do transportador", "transportador"},
	{"Horas extras e banco de horas", "extraordinarias"},
	{"Adicional de insalubridade em hospital", "insalubridade"},
	{"Contribuicao previdenciaria sobre terco de ferias", "terco"},
	{"ICMS na base de calculo do PIS e da COFINS", "cofins"},
	{"Improbidade administrativa e dolo especifico", "improbidade"},
	{"Licitacao e inexigibilidade por notoria especializacao", "inexigibilidade"},
	{"Servidor publico e estabilidade em estagio probatorio", "probatorio"},
	{"Penhora de salario para divida nao alimentar", "impenhorabilidade"},
	{"Plano de saude e cobertura de tratamento experimental", "experimental"},
	{"Direito ao esquecimento na imprensa", "esquecimento"},
	{"Uniao estavel e partilha de bens", "partilha"},
	{"Marca notoria e concorrencia desleal", "desleal"},
	{"Recuperacao judicial e creditos extraconcursais", "extraconcursais"},
	{"Busca e apreensao em alienacao fiduciaria", "fiduciaria"},
	{"Trafico privilegiado e reducao de pena", "privilegiado"},
	{"Tema repetitivo sobre juros de mora", "moratorios"},
	{"Acao civil publica ambiental", "ambiental"},
	{"Mandado de seguranca contra ato judicial", "teratologico"},
	{"Justica gratuita para pessoa juridica", "hipossuficiencia"},
	{"Embargos de declaracao protelatorios", "protelatorios"},
	{"Aposentadoria especial por exposicao a ruido", "ruido"},
	{"Vinculo de emprego de motorista de aplicativo", "aplicativo"},
}

const (
	tieQuery = "anatocismo"
	tieTitle = "Capitalizacao de juros em contrato bancario"
)

// BuildCorpus returns a corpus with one document per topic plus a tie pair, and
// one query test case per signature term.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	cases := buildQueryTestCases(docs)
	c := &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
		TiePair:      [2]string{"e2e-tie-popular", "e2e-tie-quiet"},
		TieQuery:     tieQuery,
	}
	return c
}

func buildDocuments() []E2EDocument {
	out := make([]E2EDocument, 0, len(topics)+2)
	for i, t := range topics {
		out = append(out, E2EDocument{
			ID:    fmt.Sprintf("e2e-doc-%03d", i+1),
			Title: t.title,
			Content: fmt.Sprintf("Trata-se de %s. O tribunal examinou a tese de %s a luz da jurisprudencia dominante e do caso concreto.",
				strings.ToLower(t.title), t.signature),
			Court:       courts[i%len(courts)],
			Clicks:      (i * 7) % 40,
			Position:    i % 10,
			Impressions: 50 + (i*13)%150,
			ClickAge:    time.Duration(i%12) * 24 * time.Hour,
		})
	}

	tieContent := fmt.Sprintf("Discute-se o %s em contrato bancario e a capitalizacao mensal de juros.", tieQuery)
	out = append(out,
		E2EDocument{
			ID: "e2e-tie-popular", Title: tieTitle, Content: tieContent, Court: courts[0],
			Clicks: 45, Position: 0, Impressions: 60, ClickAge: time.Hour,
		},
		E2EDocument{
			ID: "e2e-tie-quiet", Title: tieTitle, Content: tieContent, Court: courts[0],
			Clicks: 1, Position: 0, Impressions: 200, ClickAge: 30 * 24 * time.Hour,
		},
	)
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	var cases []QueryTestCase
	for i, t := range topics {
		if i >= len(docs) {
			break
		}
		d := docs[i]
		cases = append(cases, QueryTestCase{
			Query:          t.signature,
			ExpectedDocIDs: []string{d.ID},
			Description:    fmt.Sprintf("query %q should return doc %s", t.signature, d.ID),
		})
	}
	return cases
}

// containsPhrase reports whether the title or content holds the phrase as
// consecutive whole tokens, split and lower-cased like the standard analyzer.
func containsPhrase(d E2EDocument, phrase string) bool {
	want := tokenize(phrase)
	if len(want) == 0 {
		return false
	}
	return hasRun(tokenize(d.Title), want) || hasRun(tokenize(d.Content), want)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasRun(tokens, want []string) bool {
	for i := 0; i+len(want) <= len(tokens); i++ {
		match := true
		for j, w := range want {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// WriteJSONL writes the corpus as a JSONL dataset with click timestamps and
// dates relative to reference. Returns the number of records written.
func (c *Corpus) WriteJSONL(w io.Writer, reference time.Time) (int, error) {
	enc := json.NewEncoder(w)
	for i, d := range c.Documents {
		rec := dataset.GeneratedDocument{
			ID:              d.ID,
			Title:           d.Title,
			Content:         d.Content,
			Court:           d.Court,
			Date:            reference.AddDate(0, -(i % 24), 0).Format("2006-01-02"),
			ClickCount:      d.Clicks,
			ClickPosition:   d.Position,
			ClickImpression: d.Impressions,
			ClickTimestamp:  reference.Add(-d.ClickAge).UTC().Format(time.RFC3339),
		}
		if err := enc.Encode(rec); err != nil {
			return i, fmt.Errorf("encode %s: %w", d.ID, err)
		}
	}
	return len(c.Documents), nil
}
