// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	UnresolvedDependencyId Id = iota + 1
	MissingTypeId
	AssemblyLoadFailedId
	NotManagedAssemblyId
	InvalidAssemblyNameId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // reference material for the issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using a glamour style
// ("dark", "light", "notty", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	unresolvedDependencyIssue = &Issue{
		id: UnresolvedDependencyId,
		mdMsg: `
# Unable to resolve a dependency!

An assembly referenced by the input could not be found. cilbind looked for
an exact identity match (name, version, culture and public key token) in:

1. The input directory
2. Every extra folder, in the order given
3. The global assembly cache and probing paths, when the fallback is enabled

## Things you can try:
- Copy the missing assembly next to the input assembly
- Add the folder that holds it:
~~~
$ cilbind refs App.dll --extra /path/to/libs
~~~
- Check that the version on disk matches the referenced version exactly;
  a newer build of the same library is not accepted
- Run with --verbose to see every candidate that was rejected`,
		extLinks: []HttpLink{"https://learn.microsoft.com/dotnet/framework/deployment/how-the-runtime-locates-assemblies"},
	}

	missingTypeIssue = &Issue{
		id: MissingTypeId,
		mdMsg: `
# Type not found in the resolved assembly!

The assembly was located and its identity matched, but its type table has no
entry for the referenced type.

## Things you can try:
- Nested types are written with '/', for example "N.Outer/Inner"
- Types without a namespace have no leading dot
- List the types the assembly declares:
~~~
$ cilbind types Foo.dll
~~~`,
	}

	assemblyLoadFailedIssue = &Issue{
		id: AssemblyLoadFailedId,
		mdMsg: `
# Failed to load an assembly!

A file on the search path matched the requested identity but its metadata
could not be read.

## Things you can try:
- Check that the file is not truncated or still being written
- Remove stale copies of the assembly from the extra folders
- Run with --verbose for the exact structure that failed to parse`,
		docLinks: []HttpLink{"https://ecma-international.org/publications-and-standards/standards/ecma-335/"},
	}

	notManagedAssemblyIssue = &Issue{
		id: NotManagedAssemblyId,
		mdMsg: `
# Not a managed assembly!

The file is a PE image but has no CLI header, so it carries no .NET metadata.
Native DLLs cannot be resolved as assembly references.

## Things you can try:
- Point cilbind at the managed wrapper assembly instead
- Check the file with:
~~~
$ cilbind identity file.dll
~~~`,
	}

	invalidAssemblyNameIssue = &Issue{
		id: InvalidAssemblyNameId,
		mdMsg: `
# Invalid assembly name!

Assembly identities are written as display names:

~~~
Name, Version=1.2.3.4, Culture=neutral, PublicKeyToken=b77a5c561934e089
~~~

## Things you can try:
- Quote the identity so the shell passes it as one argument
- Use a four part version
- Use PublicKeyToken=null for assemblies without a strong name`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show where cilbind looks for its configuration:
~~~
$ cilbind config path
~~~
- Write a fresh default configuration:
~~~
$ cilbind config init
~~~
- Compare your file with the defaults:
~~~
$ cilbind config show
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	issues = map[Id]*Issue{
		unresolvedDependencyIssue.Id(): unresolvedDependencyIssue,
		missingTypeIssue.Id():          missingTypeIssue,
		assemblyLoadFailedIssue.Id():   assemblyLoadFailedIssue,
		notManagedAssemblyIssue.Id():   notManagedAssemblyIssue,
		invalidAssemblyNameIssue.Id():  invalidAssemblyNameIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
	}
)

// Values returns every known issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
