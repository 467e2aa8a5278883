package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/commonsync/objectstore/objectstore"
	"github.com/commonsync/objectstore/objectstore/sqlitekv"
)

const ObjectCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Object store control.

Settings not given as options are read from the environment
(OBJECTSTORE_SERVER_URL, OBJECTSTORE_APPLICATION_ID, ...).
With --master_key and no value, the key is prompted without echo.

Usage:
    objectctl create <class> [--server_url=<server_url>] [--app_id=<app_id>]
        [--session_token=<session_token>] [--master_key]
        [<json>]
    objectctl get <class> <object_id> [--server_url=<server_url>] [--app_id=<app_id>]
        [--session_token=<session_token>] [--master_key]
    objectctl delete <class> <object_id> [--server_url=<server_url>] [--app_id=<app_id>]
        [--session_token=<session_token>] [--master_key]
    objectctl query <class> [--server_url=<server_url>] [--app_id=<app_id>]
        [--session_token=<session_token>] [--master_key]
        [<json>]
    objectctl install-id [--storage_path=<storage_path>]
    objectctl clear-install-id [--storage_path=<storage_path>]

Options:
    -h --help                        Show this screen.
    --version                        Show version.
    --server_url=<server_url>
    --app_id=<app_id>                Application id.
    --session_token=<session_token>  Session token attached to each command.
    --master_key                     Prompt for the master key.
    --storage_path=<storage_path>    SQLite file for the installation identity.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ObjectCtlVersion)
	if err != nil {
		panic(err)
	}

	if create_, _ := opts.Bool("create"); create_ {
		create(opts)
	} else if get_, _ := opts.Bool("get"); get_ {
		get(opts)
	} else if delete_, _ := opts.Bool("delete"); delete_ {
		deleteObject(opts)
	} else if query_, _ := opts.Bool("query"); query_ {
		query(opts)
	} else if installId_, _ := opts.Bool("install-id"); installId_ {
		installId(opts)
	} else if clearInstallId_, _ := opts.Bool("clear-install-id"); clearInstallId_ {
		clearInstallId(opts)
	}
}

func newClient(opts docopt.Opts) *objectstore.Client {
	settings, err := objectstore.SettingsFromEnv()
	if err != nil {
		Err.Fatalf("Could not load settings: %s", err)
	}

	if serverUrl, err := opts.String("--server_url"); err == nil && serverUrl != "" {
		settings.ServerUrl = serverUrl
	}
	if appId, err := opts.String("--app_id"); err == nil && appId != "" {
		settings.ApplicationId = appId
	}
	if sessionToken, err := opts.String("--session_token"); err == nil && sessionToken != "" {
		settings.SessionToken = sessionToken
	}
	if masterKey_, _ := opts.Bool("--master_key"); masterKey_ {
		fmt.Fprint(os.Stderr, "Master key: ")
		masterKeyBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			Err.Fatalf("Could not read master key: %s", err)
		}
		settings.MasterKey = string(masterKeyBytes)
	}

	return objectstore.NewClient(settings.Session())
}

func parseJsonArg(opts docopt.Opts) map[string]any {
	jsonArg, err := opts.String("<json>")
	if err != nil || jsonArg == "" {
		return nil
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(jsonArg), &fields); err != nil {
		Err.Fatalf("Invalid json argument: %s", err)
	}
	return fields
}

func printJson(value any) {
	valueJson, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		Err.Fatalf("Could not encode result: %s", err)
	}
	Out.Printf("%s", valueJson)
}

func create(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	className, _ := opts.String("<class>")
	result, err := client.CreateObject(className, parseJsonArg(opts))
	if err != nil {
		Err.Fatalf("Create failed: %s", err)
	}
	printJson(result)
}

func get(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	className, _ := opts.String("<class>")
	objectId, _ := opts.String("<object_id>")
	object, err := client.GetObject(className, objectId)
	if err != nil {
		Err.Fatalf("Get failed: %s", err)
	}
	printJson(object)
}

func deleteObject(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	className, _ := opts.String("<class>")
	objectId, _ := opts.String("<object_id>")
	if err := client.DeleteObject(className, objectId); err != nil {
		Err.Fatalf("Delete failed: %s", err)
	}
	Out.Printf("deleted %s/%s", className, objectId)
}

func query(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	className, _ := opts.String("<class>")
	objects, err := client.QueryObjects(className, parseJsonArg(opts))
	if err != nil {
		Err.Fatalf("Query failed: %s", err)
	}
	printJson(objects)
}

func newInstallationIds(opts docopt.Opts) *objectstore.InstallationIdProvider {
	storagePath, err := opts.String("--storage_path")
	if err != nil || storagePath == "" {
		settings, err := objectstore.SettingsFromEnv()
		if err != nil {
			Err.Fatalf("Could not load settings: %s", err)
		}
		storagePath = settings.StoragePath
	}
	if storagePath == "" {
		Err.Fatalf("A storage path is required (--storage_path or OBJECTSTORE_STORAGE_PATH)")
	}
	store, err := sqlitekv.Open(storagePath)
	if err != nil {
		Err.Fatalf("Could not open storage: %s", err)
	}
	return objectstore.NewInstallationIdProvider(store)
}

func installId(opts docopt.Opts) {
	installationIds := newInstallationIds(opts)
	id, err := installationIds.Get(context.Background())
	if err != nil {
		Err.Fatalf("Could not resolve installation id: %s", err)
	}
	Out.Printf("%s", id)
}

func clearInstallId(opts docopt.Opts) {
	installationIds := newInstallationIds(opts)
	if err := installationIds.Clear(context.Background()); err != nil {
		Err.Fatalf("Could not clear installation id: %s", err)
	}
	Out.Printf("cleared")
}
