package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"

	"github.com/hitoshi/dishlist/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// datastarScriptURL はクライアントが読み込むdatastarスクリプト。
const datastarScriptURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	ScriptURL string
	Signals   string
}

type dishPageData struct {
	Dishes     []model.Dish
	NextCursor string
}

type authenticatedData struct {
	Session *model.SessionInfo
	Page    dishPageData
}

// pageSignals はページ全体で共有するdatastarシグナルの初期値。
type pageSignals struct {
	CSRF     string `json:"csrf"`
	Title    string `json:"title"`
	Creating bool   `json:"creating"`
	Removing bool   `json:"removing"`
	Loading  bool   `json:"loading"`
}

func newDishPageData(page *model.DishPage) dishPageData {
	d := dishPageData{Dishes: page.Dishes}
	if page.NextCursor != nil {
		d.NextCursor = *page.NextCursor
	}
	return d
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderPage(csrfToken string) (string, error) {
	signals, err := json.Marshal(pageSignals{CSRF: csrfToken})
	if err != nil {
		return "", err
	}
	return render("page", pageData{ScriptURL: datastarScriptURL, Signals: string(signals)})
}
