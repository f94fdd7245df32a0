package assemble

import "html/template"

// Page templates mirror the site's established markup: a pilcrow header, the
// uppercased site title, justified article content, an optional illuminated
// initial floated into the first paragraph, and a backlinks section.

type backlinkView struct {
	Title string
	URL   string
}

type postView struct {
	SiteTitle      string
	SiteTitleUpper string
	Title          string
	Content        template.HTML
	Initial        template.URL // data URL; empty when no initial exists
	InitialLetter  string
	Backlinks      []backlinkView
}

type indexEntryView struct {
	Title    string
	URL      string
	DateTime string // RFC3339, machine-readable
	Date     string // DD/MM/YYYY, displayed
	Excerpt  string
}

type indexView struct {
	SiteTitle      string
	SiteTitleUpper string
	Posts          []indexEntryView
}

var postTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - {{.SiteTitle}}</title>
    <link rel="stylesheet" href="../style.css">
    <link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Crimson+Text:ital,wght@0,400;0,600;1,400&family=Inter:wght@400;600;700&display=swap" rel="stylesheet">
</head>
<body>
    <div class="container">
        <header>
            <div class="header-content">
                <a href="../" class="pilcrow">&#182;</a>
                <a href="../" class="main-title">{{.SiteTitleUpper}}</a>
            </div>
        </header>

        <main class="content">
            <article>
                <h1 class="post-title">{{.Title}}</h1>
                <div class="post-content">
{{- if .Initial}}
                    <div class="illuminated-initial">
                        <img src="{{.Initial}}" alt="Illuminated initial {{.InitialLetter}}" class="initial-image">
                    </div>
{{- end}}
                    {{.Content}}
                </div>
            </article>
{{- if .Backlinks}}
            <section class="backlinks">
                <h2>Backlinks</h2>
                <ul>
{{- range .Backlinks}}
                    <li><a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
                </ul>
            </section>
{{- end}}
        </main>

        <footer>
            <a href="../" class="home-link">&larr; Back to all posts</a>
        </footer>
    </div>
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.SiteTitle}}</title>
    <link rel="stylesheet" href="./style.css">
    <link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Crimson+Text:ital,wght@0,400;0,600;1,400&family=Inter:wght@400;600;700&display=swap" rel="stylesheet">
</head>
<body>
    <div class="container">
        <header>
            <div class="header-content">
                <a href="./" class="pilcrow">&#182;</a>
                <a href="./" class="main-title">{{.SiteTitleUpper}}</a>
            </div>
        </header>

        <main class="content">
            <section class="posts-list">
{{- range .Posts}}
                <article class="post-preview">
                    <div class="post-header">
                        <h2><a href="{{.URL}}">{{.Title}}</a></h2>
                        <time datetime="{{.DateTime}}">{{.Date}}</time>
                    </div>
{{- if .Excerpt}}
                    <p class="excerpt">{{.Excerpt}}</p>
{{- end}}
                </article>
{{- end}}
            </section>
        </main>
    </div>
</body>
</html>
`))
