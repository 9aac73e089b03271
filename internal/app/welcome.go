package app

// WelcomeText is loaded into the editor the first time memopad starts
// against an empty store.
const WelcomeText = `# Welcome to Memopad!

How to use this app:

## Basic features
- Style text with **markdown**
- Manage several memos with **tabs**
- Watch the rendered result in the **live preview**
- Edit quickly with **search and replace**

## Keyboard shortcuts
- ` + "`Ctrl+S`" + `: download as a markdown file
- ` + "`Ctrl+Alt+S`" + `: save in the app (autosave also runs)
- ` + "`Ctrl+T`" + `: new tab
- ` + "`Ctrl+W`" + `: close tab
- ` + "`Ctrl+F`" + `: search and replace
- ` + "`Ctrl+B`" + `: bold
- ` + "`Ctrl+I`" + `: italic

## Saving
- **Autosave**: memos are stored automatically and restored on the next start
- **Download**: Ctrl+S saves the memo locally as an .md file

Happy Writing! 📝`
