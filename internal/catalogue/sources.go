package catalogue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/termcheck/internal/schema"
)

// Group is the section a source belongs to in the verification process.
type Group string

const (
	GroupInternal Group = "internal"
	GroupNetflix  Group = "netflix"
	GroupExternal Group = "external"
	GroupExpert   Group = "expert"
)

// Source is a verification source that evidence may cite.
type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Group       Group  `json:"group"`
	// PriorNotation marks sources whose payload is an already confirmed
	// notation of the name.
	PriorNotation bool `json:"prior_notation,omitempty"`
}

// Source identifiers used outside the direction priority lists.
const (
	SourceTermbase  = "termbase"
	SourceHistory   = "history"
	SourceTeamwork  = "teamwork"
	SourceKyonshik  = "kyonshik_confirmation"
	SourceHazel     = "hazel_confirmation"
	SourceGenerator = "candidate_generator"
)

var registry = func() map[string]Source {
	list := []Source{
		{ID: SourceTermbase, Name: "CF Termbase", Description: "Confirmed termbase entries", Group: GroupInternal, PriorNotation: true},
		{ID: SourceHistory, Name: "termcheck history", Description: "Notations accepted in earlier evaluations", Group: GroupInternal, PriorNotation: true},
		{ID: SourceTeamwork, Name: "CF Teamwork", URL: "https://cultureflipper.teamwork.com", Description: "Existing submissions (records before 2019 are not trusted)", Group: GroupInternal, PriorNotation: true},
		{ID: "terminology_depository", Name: "CF Terminology Depository", Description: "Terminologists' depository for name verification", Group: GroupInternal, PriorNotation: true},
		{ID: "tm_depository", Name: "TM Depository", Description: "Internal terminology management depository", Group: GroupInternal, PriorNotation: true},
		{ID: "tm_job_organizer", Name: "TM Job Organizer", Description: "Terminology job organization sheet", Group: GroupInternal},
		{ID: "tm_cellar", Name: "TM Cellar", Description: "Terminology archive sheet", Group: GroupInternal},
		{ID: "cf_master_marketing", Name: "CF Master Marketing Translations", Description: "Marketing translations source of truth", Group: GroupInternal},
		{ID: "cf_metadata", Name: "CF Metadata", Description: "Container word translations", Group: GroupInternal},
		{ID: "lucid_tm", Name: "Lucid TM", URL: "https://localization-lucid.netflix.com/translation/search/?targetLocales=ko", Description: "Notation history in the Netflix TM", Group: GroupInternal, PriorNotation: true},
		{ID: "tiloc", Name: "NF Tiloc", URL: "https://localization-lucid.netflix.com/titles/search?cl=1", Description: "Title localization resource", Group: GroupNetflix},
		{ID: "noc", Name: "NF Original Credits (NOC)", Description: "Netflix original credits", Group: GroupNetflix},
		{ID: "mmt", Name: "NF Master Marketing Translations (MMT)", Description: "Netflix marketing translations", Group: GroupNetflix},
		{ID: "ratings_trackers", Name: "NF Korean Ratings Trackers", Description: "Korean ratings tracking sheet", Group: GroupNetflix},
		{ID: "nf_service", Name: "NF Service Page", URL: "https://www.netflix.com/browse", Description: "Netflix streaming service", Group: GroupNetflix},
		{ID: "lrt", Name: "NF LRT", URL: "https://lrt.netflix.net/", Description: "Netflix translation resource tool", Group: GroupNetflix},
		{ID: "lego", Name: "LEGO subtitle search", URL: "https://lego.netflix.com/#", Description: "Netflix subtitle search", Group: GroupNetflix},
		{ID: "cognito_form", Name: "NF Cognito Form", Description: "Netflix error reporting form", Group: GroupNetflix},
		{ID: "nikl", Name: "NIKL", URL: "https://kornorms.korean.go.kr/", Description: "National Institute of Korean Language standards", Group: GroupExternal},
		{ID: "nikl_examples", Name: "NIKL Example Search", URL: "https://kornorms.korean.go.kr//example/exampleList.do?regltn_code=0003", Description: "Loanword notation examples", Group: GroupExternal},
		{ID: "nikl_romanization", Name: "NIKL Romanization Rules", URL: "https://kornorms.korean.go.kr//regltn/regltnView.do?regltn_code=0004#a", Description: "Official Revised Romanization rules", Group: GroupExternal},
		{ID: "romanization_converter", Name: "Romanization Converter", URL: "http://roman.cs.pusan.ac.kr/", Description: "Korean to Latin converter", Group: GroupExternal},
		{ID: "kofic_kobis", Name: "KOFIC KOBIS", URL: "https://www.kobis.or.kr/kobis/business/main/main.do", Description: "Box office information system", Group: GroupExternal},
		{ID: "kofic_kobiz", Name: "KOFIC KoBiz", URL: "http://www.koreanfilm.or.kr/eng/main/main.jsp", Description: "Korean Film Council business portal", Group: GroupExternal},
		{ID: "kmdb", Name: "KMDb", URL: "https://www.kmdb.or.kr/main", Description: "Korean Movie Database", Group: GroupExternal},
		{ID: "kmrb", Name: "KMRB", URL: "https://www.kmrb.or.kr/kor/Main.do", Description: "Korea Media Rating Board", Group: GroupExternal},
		{ID: "cambridge_dictionary", Name: "Cambridge Dictionary", URL: "https://dictionary.cambridge.org/dictionary/english/", Description: "English pronunciation reference", Group: GroupExternal},
		{ID: "playdb", Name: "PlayDB", URL: "http://www.playdb.co.kr/Index.asp", Description: "Korean performing arts database", Group: GroupExternal},
		{ID: "grac", Name: "GRAC", URL: "https://www.grac.or.kr/", Description: "Game Rating and Administration Committee", Group: GroupExternal},
		{ID: "national_library", Name: "National Library of Korea", URL: "https://www.nl.go.kr/", Description: "National library catalogue", Group: GroupExternal},
		{ID: "youtube", Name: "YouTube", URL: "https://www.youtube.com/", Description: "Pronunciation verification", Group: GroupExternal},
		{ID: "imdb", Name: "IMDb", URL: "https://www.imdb.com/", Description: "Internet Movie Database", Group: GroupExternal},
		{ID: SourceKyonshik, Name: "Kyonshik confirmation", Description: "Phonetician confirmation for NF projects", Group: GroupExpert, PriorNotation: true},
		{ID: SourceHazel, Name: "Hazel confirmation", Description: "Phonetician confirmation for non-NF projects", Group: GroupExpert, PriorNotation: true},
		{ID: SourceGenerator, Name: "Candidate generator", Description: "Model-proposed notation", Group: GroupExternal},
	}
	m := make(map[string]Source, len(list))
	for _, s := range list {
		m[s.ID] = s
	}
	return m
}()

// priorities is the consultation order per direction.
var priorities = map[schema.Direction][]string{
	schema.KoToEn: {
		"teamwork", "terminology_depository", "tm_depository", "lucid_tm",
		"noc", "mmt", "ratings_trackers", "lrt", "lego",
		"nikl_romanization", "kofic_kobiz", "romanization_converter", "kmdb", "youtube", "imdb",
	},
	schema.EnToKo: {
		"teamwork", "terminology_depository", "tm_depository", "lucid_tm",
		"tiloc", "noc", "mmt", "ratings_trackers", "nf_service", "lrt",
		"nikl", "nikl_examples", "kmrb", "cambridge_dictionary", "youtube", "imdb",
	},
}

// LookupSource returns the registry entry for id.
func LookupSource(id string) (Source, bool) {
	s, ok := registry[id]
	return s, ok
}

// IsPriorNotationSource reports whether evidence from id carries a confirmed
// notation.
func IsPriorNotationSource(id string) bool {
	return registry[id].PriorNotation
}

// SourcesFor returns the sources of dir in consultation order.
func SourcesFor(dir schema.Direction) []Source {
	ids := priorities[dir]
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		out = append(out, registry[id])
	}
	return out
}

// AllSources returns every registered source sorted by id.
func AllSources() []Source {
	out := make([]Source, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var groupTitles = []struct {
	group Group
	title string
}{
	{GroupInternal, "Internal Data Verification"},
	{GroupNetflix, "Netflix-Specific Resources"},
	{GroupExternal, "External Data Verification"},
}

// ProcessText renders the human-readable verification process for dir.
func ProcessText(dir schema.Direction) string {
	var b strings.Builder
	if dir == schema.EnToKo {
		b.WriteString("VERIFICATION PROCESS FOR ENGLISH TO KOREAN NAMES:\n")
	} else {
		b.WriteString("VERIFICATION PROCESS FOR KOREAN TO ENGLISH NAMES:\n")
	}

	sources := SourcesFor(dir)
	for i, gt := range groupTitles {
		fmt.Fprintf(&b, "\n%d. %s:\n", i+1, gt.title)
		for _, s := range sources {
			if s.Group != gt.group {
				continue
			}
			if s.URL != "" {
				fmt.Fprintf(&b, "   - %s: %s\n", s.Name, s.URL)
			} else {
				fmt.Fprintf(&b, "   - %s\n", s.Name)
			}
			if s.Description != "" {
				fmt.Fprintf(&b, "     (%s)\n", s.Description)
			}
		}
	}

	b.WriteString("\n4. Expert Confirmation (real persons):\n")
	b.WriteString("   - Names first confirmed after 08/11/2020: Kyonshik for NF projects, Hazel otherwise\n")
	if dir == schema.EnToKo {
		b.WriteString("   - Record 'HZ Original Notation' in the Korean target of the termbase\n")
	}
	return b.String()
}
