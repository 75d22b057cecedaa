package mcpserver

// OsuFormatContract describes the .osu difficulty file layout and the
// set-building rules that LLM consumers should follow when preparing
// drafts through the tools.
const OsuFormatContract = `# Setforge Beatmap Format Contract

Setforge assembles .osz beatmap sets from plain-text .osu difficulty files.

## .osu structure

` + "```" + `
osu file format v14

[General]
AudioFilename: song.mp3
PreviewTime: 39000

[Metadata]
Title:Song Title
Artist:Artist Name
Creator:mapper
Version:Insane
Source:Game Name
Tags:space separated words
BeatmapID:0
BeatmapSetID:-1

[Events]
0,0,"background.jpg",0,0

[TimingPoints]
...

[HitObjects]
...
` + "```" + `

## Rules

1. **Sections** are headed by ` + "`" + `[Name]` + "`" + ` lines. Setforge only rewrites
   [General], [Metadata] and [Events]; every other line passes through untouched.
2. **Metadata keys** recognised across the set: Title, Artist, Creator, Source,
   Tags. Version names the individual difficulty and must be unique per set.
3. **Formatted filenames** follow ` + "`" + `Artist - Title (creator) [Version].osu` + "`" + `.
   Adding a file with a formatted name seeds any draft metadata fields that are
   still empty.
4. **Background events** have the form ` + "`" + `0,0,"file",0,0` + "`" + ` inside [Events].
   Builds replace every difficulty's background with the draft background.
5. **PreviewTime** is in milliseconds from the start of the audio. It is only
   rewritten when the draft sets one.
6. **Encoding** is UTF-8; legacy Latin-1 files are accepted on input.

## Building a set

- A draft needs at least one difficulty, a background image and non-empty
  Title and Artist before ` + "`" + `build_set` + "`" + ` succeeds.
- Difficulty names must be unique; use ` + "`" + `rename_difficulty` + "`" + ` or renumbering
  to resolve clashes.
- Audio files referenced by the difficulties are copied into the archive once
  per base name; missing audio is skipped with a warning.
- Backgrounds are uploaded via ` + "`" + `upload_background` + "`" + ` (png, jpg, jpeg) and
  stored in the shared ` + "`" + `backgrounds/` + "`" + ` directory of the library.
- The archive is flat: difficulty files, one background, the audio tracks.
`
