package assemble

import (
	"bytes"
	"text/template"

	"github.com/inkpress/scribe/internal/config"
)

// stylesheet renders style.css with the site's theme colors substituted.
// Everything else in the stylesheet is fixed.
func stylesheet(theme config.Theme) ([]byte, error) {
	var buf bytes.Buffer
	if err := cssTemplate.Execute(&buf, theme); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var cssTemplate = template.Must(template.New("css").Parse(`/* Reset and base styles */
* {
  margin: 0;
  padding: 0;
  box-sizing: border-box;
}

body {
  background-color: {{.BackgroundColor}};
  color: {{.TextColor}};
  font-family: 'Crimson Text', Georgia, serif;
  line-height: 1.7;
  font-size: 18px;
  -webkit-font-smoothing: antialiased;
  -moz-osx-font-smoothing: grayscale;
}

/* Container */
.container {
  max-width: 800px;
  margin: 0 auto;
  padding: 0 20px;
}

/* Header */
header {
  padding: 40px 0;
  margin-bottom: 60px;
}

.header-content {
  display: flex;
  align-items: center;
  justify-content: space-between;
}

.pilcrow {
  font-size: 24px;
  color: {{.PrimaryColor}};
  font-weight: 400;
  text-decoration: none;
  transition: color 0.2s ease;
}

.pilcrow:hover {
  color: {{.AccentColor}};
}

.main-title {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 32px;
  font-weight: 700;
  letter-spacing: 0.1em;
  text-transform: uppercase;
  color: {{.PrimaryColor}};
  position: relative;
  text-decoration: none;
  transition: color 0.2s ease;
}

.main-title:hover {
  color: {{.AccentColor}};
}

.main-title::after {
  content: '';
  position: absolute;
  bottom: -8px;
  left: 0;
  right: 0;
  height: 1px;
  background-color: #4a4a4a;
}

/* Content */
.content {
  margin-bottom: 80px;
}

/* Post titles */
.post-title {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 42px;
  font-weight: 700;
  line-height: 1.2;
  margin-bottom: 30px;
  color: {{.PrimaryColor}};
  position: relative;
}

.post-title::after {
  content: '';
  position: absolute;
  bottom: -12px;
  left: 0;
  right: 0;
  height: 1px;
  background-color: #4a4a4a;
}

/* Post content */
.post-content {
  font-size: 20px;
  line-height: 1.4;
  margin-bottom: 60px;
}

.post-content p {
  margin-bottom: 1.5em;
  text-align: justify;
  hyphens: auto;
}

.post-content h1 {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 32px;
  font-weight: 600;
  margin: 40px 0 20px 0;
  color: {{.PrimaryColor}};
  text-align: left;
}

.post-content h2 {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 28px;
  font-weight: 600;
  margin: 40px 0 20px 0;
  color: {{.PrimaryColor}};
  position: relative;
  text-align: right;
}

.post-content h2::after {
  content: '';
  position: absolute;
  bottom: -8px;
  left: 0;
  right: 0;
  height: 1px;
  background-color: #4a4a4a;
}

.post-content h3 {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 22px;
  font-weight: 600;
  margin: 30px 0 15px 0;
  color: {{.PrimaryColor}};
  text-align: right;
}

.post-content h3::before {
  content: '\00B6';
  position: absolute;
  left: 0;
  top: 0;
  font-size: 16px;
  color: {{.AccentColor}};
}

.post-content ul, .post-content ol {
  margin: 20px 0;
  padding-left: 30px;
}

.post-content li {
  margin-bottom: 8px;
}

.post-content blockquote {
  border-left: 3px solid #4a4a4a;
  padding-left: 20px;
  margin: 30px 0;
  font-style: italic;
  color: #d0d0d0;
}

.post-content code {
  background-color: #1a1a1a;
  padding: 2px 6px;
  border-radius: 3px;
  font-family: 'SF Mono', Monaco, 'Cascadia Code', 'Roboto Mono', Consolas, 'Courier New', monospace;
  font-size: 0.9em;
}

.post-content pre {
  background-color: #1a1a1a;
  padding: 20px;
  border-radius: 6px;
  overflow-x: auto;
  margin: 20px 0;
}

.post-content pre code {
  background: none;
  padding: 0;
}

/* Illuminated initial */
.illuminated-initial {
  float: left;
  margin: 0 12px 20px 0;
  shape-outside: rectangle(0, 0, 80px, 80px);
}

.initial-image {
  width: 80px;
  height: 80px;
  object-fit: cover;
  box-shadow: 0 4px 12px rgba(0, 0, 0, 0.3);
  border: 1px solid #4a4a4a;
}

/* Links */
a {
  color: {{.AccentColor}};
  text-decoration: underline;
  text-decoration-color: #4a4a4a;
  text-underline-offset: 2px;
  transition: color 0.2s ease;
}

a:hover {
  color: {{.TextColor}};
  text-decoration-color: {{.AccentColor}};
}

/* Backlinks section */
.backlinks {
  margin-top: 60px;
  padding-top: 40px;
  border-top: 1px solid #2a2a2a;
}

.backlinks h2 {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 24px;
  font-weight: 600;
  margin-bottom: 20px;
  color: {{.PrimaryColor}};
}

.backlinks ul {
  list-style: none;
  padding: 0;
}

.backlinks li {
  margin-bottom: 12px;
}

.backlinks a {
  font-size: 16px;
  color: {{.AccentColor}};
}

/* Posts list (index page) */
.posts-list {
  display: flex;
  flex-direction: column;
  gap: 30px;
}

.post-preview {
  padding-bottom: 30px;
  border-bottom: 1px solid #2a2a2a;
}

.post-preview:last-child {
  border-bottom: none;
}

.post-header {
  display: flex;
  justify-content: space-between;
  align-items: baseline;
  margin-bottom: 8px;
}

.post-preview h2 {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 28px;
  font-weight: 600;
  margin: 0;
  flex: 1;
}

.post-preview h2 a {
  color: {{.PrimaryColor}};
  text-decoration: none;
}

.post-preview h2 a:hover {
  color: {{.AccentColor}};
}

.post-preview time {
  font-size: 14px;
  color: {{.AccentColor}};
  font-family: 'Inter', sans-serif;
  text-transform: uppercase;
  letter-spacing: 0.05em;
  white-space: nowrap;
  margin-left: 20px;
}

.post-preview .excerpt {
  margin-top: 0;
  font-size: 16px;
  color: #d0d0d0;
  line-height: 1.5;
}

/* Footer */
footer {
  padding: 40px 0;
  border-top: 1px solid #2a2a2a;
  text-align: center;
}

.home-link {
  font-family: 'Crimson Text', Georgia, serif;
  font-size: 16px;
  color: {{.AccentColor}};
  text-decoration: none;
  transition: color 0.2s ease;
}

.home-link:hover {
  color: {{.TextColor}};
}

/* Responsive design */
@media (max-width: 768px) {
  .container {
    padding: 0 15px;
  }

  .main-title {
    font-size: 24px;
  }

  .post-title {
    font-size: 32px;
  }

  .post-content {
    font-size: 18px;
  }

  .illuminated-initial {
    float: none;
    margin: 0 0 20px 0;
    text-align: center;
  }

  .initial-image {
    width: 60px;
    height: 60px;
  }

  .header-content {
    flex-direction: column;
    gap: 20px;
    text-align: center;
  }

  .post-header {
    flex-direction: column;
    align-items: flex-start;
    gap: 4px;
  }

  .post-preview time {
    margin-left: 0;
    font-size: 12px;
  }

  .post-preview h2 {
    font-size: 24px;
  }
}

/* Print styles */
@media print {
  body {
    background: white;
    color: black;
  }

  .illuminated-initial {
    display: none;
  }
}
`))
