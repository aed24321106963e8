package mcpserver

// PostFormatContract describes the Markdown format of post bodies that LLM
// consumers should follow.
const PostFormatContract = `# Post Format Contract

Post bodies are stored in the ` + "`" + `mainContent` + "`" + ` field as Markdown.

## Structure

` + "```" + `markdown
# Post title

Opening paragraph.

## Section heading

Body text with **bold**, *italic*, ` + "`" + `code` + "`" + ` and <u>underline</u>.

![Alt text](https://images.ctfassets.net/...)

See also [another post](/p/another-post).
` + "```" + `

## Rules

1. **The title lives in its own field.** The body starts with a single ` + "`" + `#` + "`" + ` heading
   repeating it.
2. **Slugs** are derived from the title: lowercase, punctuation dropped, words joined
   by single hyphens. They cannot be changed through the tools.
3. **Links between posts** use ` + "`" + `/p/{slug}` + "`" + `. They power backlinks.
4. **Tags** are attached by id (see ` + "`" + `list_tags` + "`" + `), never written in the body.
5. **Images** must be uploaded with ` + "`" + `upload_asset` + "`" + ` and referenced by the returned
   URL. Do not hotlink external images.
6. **Excerpt** is a single plain-text sentence; it defaults to the title.
7. **No raw HTML** except ` + "`" + `<u>` + "`" + ` for underline.

## Assets & Images

- ` + "`" + `upload_asset` + "`" + ` accepts png, jpg, jpeg, gif, webp and svg up to the configured size limit.
- Large images are scaled down before upload.
- The returned ` + "`" + `markdownImage` + "`" + ` is ready to paste. When ` + "`" + `status` + "`" + ` is not
  ` + "`" + `published` + "`" + ` the URL may be a placeholder; check again later.
`
