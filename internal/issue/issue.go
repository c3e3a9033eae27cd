// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DocsBaseURL is the root of the online documentation.
const DocsBaseURL = "https://github.com/afml/afml/blob/main/docs/"

const (
	ProjectNotFoundId Id = iota + 1
	ProjectParseErrorId
	InvalidDefinitionId
	JobNotFoundId
	FormatErrorId
	StepFailedId
	InterpreterNotFoundId
	ShellNotFoundId
	ConfigLoadFailedId
	WatchFailedId
)

type (
	// Id identifies a help page.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown help page shown after a failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render renders the page for a terminal. stylePath is a glamour style name
// ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if links := append(i.DocLinks(), i.extLinks...); len(links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, l := range links {
			md.WriteString("\n- <" + string(l) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	issues = map[Id]*Issue{
		ProjectNotFoundId: {
			id: ProjectNotFoundId,
			mdMsg: `
# No project file found

afml reads ` + "`project.yml`" + ` from the current directory unless you pass ` + "`-p`" + `.

## Things you can try
- Change into the directory that holds your project
- Point at the file explicitly:
~~~
$ afml run -p path/to/project.yml
~~~
- A CUE project works too:
~~~
$ afml run -p project.cue
~~~`,
			docLinks: []HttpLink{DocsBaseURL + "project.md"},
		},
		ProjectParseErrorId: {
			id: ProjectParseErrorId,
			mdMsg: `
# The project file could not be read

The file is not valid YAML or CUE, or its top level is not a mapping.

## Things you can try
- Check indentation and quoting around values containing ` + "`{`" + ` or ` + "`:`" + `
- Run ` + "`afml validate`" + ` to see the exact location`,
			docLinks: []HttpLink{DocsBaseURL + "project.md"},
		},
		InvalidDefinitionId: {
			id: InvalidDefinitionId,
			mdMsg: `
# A definition is incomplete

Datasets need a ` + "`folder`" + `, models need a ` + "`src`" + ` of the form ` + "`path:callable`" + `,
jobs need ` + "`steps`" + ` and every step needs an executor key.

## Things you can try
- Fix the entry named in the message
- Or drop invalid entries with a warning instead of failing:
~~~
$ afml run --definitions lenient
~~~`,
			docLinks: []HttpLink{DocsBaseURL + "project.md#definitions"},
		},
		JobNotFoundId: {
			id: JobNotFoundId,
			mdMsg: `
# No such job

Jobs are selected by name, by display name (` + "`Job 2`" + `) or by 1-based position.

## Things you can try
~~~
$ afml list
~~~`,
		},
		FormatErrorId: {
			id: FormatErrorId,
			mdMsg: `
# A parameter could not be formatted

A ` + "`{field}`" + ` names something that is not in scope, or the template is malformed.

## Things you can try
- Check the spelling against ` + "`afml context show`" + `
- Write literal braces as ` + "`{{`" + ` and ` + "`}}`" + `, for example ` + "`${{HOME}}`" + ` in shell commands
- Remember that expressions need spaces around ` + "`-`" + `: ` + "`{epochs - 1}`",
			docLinks: []HttpLink{DocsBaseURL + "params.md"},
		},
		StepFailedId: {
			id: StepFailedId,
			mdMsg: `
# A step failed

The step exited with a non-zero status, so the remaining steps of the run were not started.

## Things you can try
- Read the step output above the banner
- Re-run only the failing job:
~~~
$ afml run -j <job>
~~~
- Print what would run without running it:
~~~
$ afml run --dry-run
~~~`,
		},
		InterpreterNotFoundId: {
			id: InterpreterNotFoundId,
			mdMsg: `
# Python interpreter not found

## Things you can try
- Activate your virtual environment
- Set ` + "`python_interpreter`" + ` in the config file or ` + "`AFML_PYTHON_INTERPRETER`" + `
- Set ` + "`python-interpreter`" + ` on the step`,
		},
		ShellNotFoundId: {
			id: ShellNotFoundId,
			mdMsg: `
# No shell found

Native shell steps use ` + "`$SHELL`" + `, then bash, then sh.

## Things you can try
- Set ` + "`shell.program`" + ` in the config file
- Use the built-in shell with ` + "`shell-runtime: virtual`",
		},
		ConfigLoadFailedId: {
			id: ConfigLoadFailedId,
			mdMsg: `
# The configuration could not be loaded

## Things you can try
- Print the file afml reads:
~~~
$ afml config path
~~~
- Write a fresh default file:
~~~
$ afml config init
~~~`,
			docLinks: []HttpLink{DocsBaseURL + "config.md"},
		},
		WatchFailedId: {
			id: WatchFailedId,
			mdMsg: `
# Watching stopped

The file watcher hit a resource limit.

## Things you can try
- Raise the inotify limit:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~
- Narrow ` + "`watch.patterns`" + ` or extend ` + "`watch.ignore`" + ` in the config file`,
			extLinks: []HttpLink{"https://man7.org/linux/man-pages/man7/inotify.7.html"},
		},
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

// Get returns the issue with the given id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
