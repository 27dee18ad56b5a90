// Command layercake is the CLI surface over Layercake's services: dataset
// ingestion, plan DAG management, DAG execution, artefact rendering, and
// story/sequence management.
package main

func main() {
	Execute()
}
