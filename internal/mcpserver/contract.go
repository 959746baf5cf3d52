package mcpserver

// TourFormatContract describes the canonical tour document format that
// LLM consumers should follow when creating tours or editing steps.
const TourFormatContract = `# Stepwise Tour Format Contract

Every tour is a single JSON document with this structure.

## Structure

` + "```" + `json
{
  "id": "server-assigned",
  "title": "Onboarding walkthrough",        // REQUIRED - at least 3 characters
  "description": "First-run product tour",  // optional
  "thumbnailRef": "https://.../thumb.png",  // optional; a placeholder is used when empty
  "isPublic": false,
  "shareableLink": "",                      // set only while the tour is public
  "createdAt": "2026-01-15T10:00:00Z",
  "updatedAt": "2026-01-15T10:00:00Z",
  "steps": [
    {
      "id": "server-assigned",
      "title": "Click the gear icon",       // REQUIRED
      "description": "Opens the settings panel",
      "mediaRef": "https://.../shot.png",   // http(s) URL, data: URI, or blob: URI
      "mediaType": "image",                 // "image" or "video"; derived from mediaRef when omitted
      "order": 0,                           // array position; contiguous from 0
      "annotations": [
        {
          "id": "server-assigned",
          "text": "Here",                   // REQUIRED
          "position": { "x": 0.42, "y": 0.13 }  // fractions of media size, each in [0, 1]
        }
      ]
    }
  ]
}
` + "```" + `

## Rules

1. **Ids are server-assigned.** Never invent ids. When editing steps via
   ` + "`" + `set_tour_steps` + "`" + `, keep the id of every step you want to preserve and omit
   the id on steps you are adding; an id the server does not recognize is
   discarded and the step is created fresh.
2. **Step order is positional.** The order of the submitted array becomes the
   tour's step order; the ` + "`" + `order` + "`" + ` field in responses reflects it.
3. **Omitting a step from ` + "`" + `set_tour_steps` + "`" + ` deletes it** along with its
   annotations. Submit the complete sequence you want to keep.
4. **Annotations** on a step draft follow the same id rules one level down.
   Omit the ` + "`" + `annotations` + "`" + ` field entirely to leave a step's stored
   annotations untouched; an empty array deletes them all.
5. **Media references** are http(s) URLs, ` + "`" + `data:` + "`" + ` URIs, or ` + "`" + `blob:` + "`" + ` URIs.
   ` + "`" + `mediaType` + "`" + ` is derived from the reference when omitted (.mp4/.webm/.ogg
   and video data URIs are video, everything else is an image).
6. **Annotation positions** are fractions of the rendered media size, so they
   stay anchored at any zoom level. Both coordinates must be within [0, 1].
7. **Publishing** is done with the ` + "`" + `publish_tour` + "`" + ` tool, never by writing
   ` + "`" + `isPublic` + "`" + ` or ` + "`" + `shareableLink` + "`" + ` directly.

## Example: reordering and editing steps

Given a tour with steps A (id "s-a") and B (id "s-b"), this draft puts B
first, rewords it, drops A, and appends a new step:

` + "```" + `json
[
  { "id": "s-b", "title": "Start here", "mediaRef": "https://cdn/b.png" },
  { "title": "Finish", "mediaRef": "https://cdn/c.mp4" }
]
` + "```" + `
`
